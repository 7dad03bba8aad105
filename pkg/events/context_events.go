package events

// Topics published by the context assembly pipeline.
const (
	TopicContextAssembled = "context.assembled"
	TopicEncodeFallback   = "encode.fallback"
	TopicItemDropped      = "item.dropped"
)

// ContextAssembledEvent summarizes one assembled context window. Requested
// and RecencyFill count retained items only.
type ContextAssembledEvent struct {
	RepoID      string
	Requested   int
	RecencyFill int
	Dropped     int
	TokensUsed  int
	TokensAvail int
}

// Topic returns the event topic for completed assemblies.
func (e ContextAssembledEvent) Topic() string {
	return TopicContextAssembled
}

// EncodeFallbackEvent records a codec strategy being silently replaced by
// compression during encode.
type EncodeFallbackEvent struct {
	Path      string
	Requested string
	Reason    string
}

// Topic returns the event topic for encode fallbacks.
func (e EncodeFallbackEvent) Topic() string {
	return TopicEncodeFallback
}

// ItemDroppedEvent records a candidate item excluded from the window.
type ItemDroppedEvent struct {
	Path   string
	Reason string
}

// Topic returns the event topic for dropped items.
func (e ItemDroppedEvent) Topic() string {
	return TopicItemDropped
}
