package cache

func KeyEventList(eventType, status string, limit int) string {
	return Key("events", "list", eventType, status, limit)
}

func KeyEvent(id int64) string {
	return Key("events", id)
}

func KeyCalendar() string {
	return Key("calendar", "ctf")
}
