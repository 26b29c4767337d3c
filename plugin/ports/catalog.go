package ports

// MessageCatalog resolves i18n keys to display text.
type MessageCatalog interface {
	Lookup(key string) (string, bool)
}
