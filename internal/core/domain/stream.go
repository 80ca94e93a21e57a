package domain

// StreamEventType tags one event on a streaming answer channel.
type StreamEventType string

const (
	StreamToken  StreamEventType = "token"
	StreamResult StreamEventType = "result"
	StreamError  StreamEventType = "error"
)

// StreamEvent is the tagged union carried by a streaming answer. A stream is a
// finite sequence of token events followed by exactly one result or error
// event, after which the channel is closed.
type StreamEvent struct {
	Type   StreamEventType
	Token  string
	Result *Answer
	Err    error
}

func TokenEvent(token string) StreamEvent {
	return StreamEvent{Type: StreamToken, Token: token}
}

func ResultEvent(answer *Answer) StreamEvent {
	return StreamEvent{Type: StreamResult, Result: answer}
}

func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Type: StreamError, Err: err}
}
