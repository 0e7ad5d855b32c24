package kafka

type HeaderPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CapturePayload struct {
	Method   string          `json:"method"`
	Protocol string          `json:"protocol"`
	Hostname string          `json:"hostname"`
	URI      string          `json:"uri"`
	Headers  []HeaderPayload `json:"headers"`
	Body     string          `json:"body"`
}
