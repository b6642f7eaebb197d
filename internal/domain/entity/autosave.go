package entity

// AutoSaveRecord is one auto-saved document body, keyed by tab id in the
// auto-save store.
type AutoSaveRecord struct {
	Content   string     `json:"content"`
	Timestamp UnixMillis `json:"timestamp"`
}
