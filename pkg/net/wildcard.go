package net

// WildcardClient wraps a Client so every inbound event can also be seen by
// catch-all handlers. The wrapped client keeps working as before.
type WildcardClient struct {
	*Client
}

// Wildcard installs the catch-all capability on c.
func Wildcard(c *Client) *WildcardClient {
	return &WildcardClient{Client: c}
}

// OnAny registers fn for every EVENT packet of the namespace. The event name
// is prepended to the arguments as a JSON string, so args[0] is always the
// name. Lifecycle events such as connect are not delivered here.
func (w *WildcardClient) OnAny(fn Handler) {
	w.intercept(fn)
}
