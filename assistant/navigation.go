package assistant

import "net/url"

// URLParams are the query parameters accepted by the standalone assistant
// page. Input pre-fills the chat box; Tab preserves the tab the user came
// from; ThreadID scopes the conversation to a mail thread.
type URLParams struct {
	Input    string
	Tab      string
	ThreadID string
}

// URL builds the assistant page URL for an email account with the given
// pre-fill parameters. Empty parameters are omitted.
func URL(emailAccountID string, params URLParams) string {
	query := url.Values{}
	if params.Input != "" {
		query.Set("input", params.Input)
	}
	if params.Tab != "" {
		query.Set("tab", params.Tab)
	}
	if params.ThreadID != "" {
		query.Set("threadId", params.ThreadID)
	}

	u := url.URL{
		Path:     "/" + emailAccountID + "/assistant",
		RawQuery: query.Encode(),
	}
	return u.String()
}
