package ws

// Inbound frame types.
const (
	TypeRegister = "register"
	TypeLogin    = "login"
	TypeMessage  = "message"
	TypeJoin     = "join"
)

// Outbound event types.
const (
	TypeRegistrationSuccess = "registration_success"
	TypeLoginSuccess        = "login_success"
	TypeError               = "error"
	TypeLeave               = "leave"
)

const (
	joinedMessage = "has joined the resistance"
	leftMessage   = "has left the resistance"
)

// Frame is one inbound wire message. All frames are flat JSON objects
// discriminated by Type; unused fields are empty.
type Frame struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Event is one outbound wire message. Events are ephemeral: constructed per
// emission, serialized once, never stored.
type Event struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

func registrationSuccessEvent() Event {
	return Event{Type: TypeRegistrationSuccess, Message: "Registration successful"}
}

func loginSuccessEvent(username string) Event {
	return Event{Type: TypeLoginSuccess, Username: username}
}

func errorEvent(message string) Event {
	return Event{Type: TypeError, Message: message}
}

func joinEvent(username string) Event {
	return Event{Type: TypeJoin, Username: username, Message: joinedMessage}
}

func leaveEvent(username string) Event {
	return Event{Type: TypeLeave, Username: username, Message: leftMessage}
}

func chatEvent(username, text string) Event {
	return Event{Type: TypeMessage, Username: username, Message: text}
}
