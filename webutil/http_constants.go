package webutil

const (
	// Header keys
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"

	// Content types
	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"
)
