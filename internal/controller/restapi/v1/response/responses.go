package response

type Error struct {
	Error string `json:"error"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Request struct {
	ID            string   `json:"id"`
	Method        string   `json:"method"`
	Protocol      string   `json:"protocol"`
	Hostname      string   `json:"hostname"`
	URI           string   `json:"uri"`
	Headers       []Header `json:"headers"`
	Body          string   `json:"body"`
	State         int      `json:"state"`
	StateName     string   `json:"state_name"`
	FromRequestID *string  `json:"from_request_id,omitempty"`
	RetryAt       *string  `json:"retry_ms_at,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type RequestList struct {
	Requests []Request `json:"requests"`
	Total    int64     `json:"total"`
}

type Attempt struct {
	ID             string `json:"id"`
	RequestID      string `json:"request_id"`
	ResponseStatus *int   `json:"response_status"`
	ResponseBody   string `json:"response_body"`
	CreatedAt      string `json:"created_at"`
}

type AttemptList struct {
	Attempts []Attempt `json:"attempts"`
	Total    int64     `json:"total"`
}

type Origin struct {
	ID             string `json:"id"`
	Domain         string `json:"domain"`
	OriginURI      string `json:"origin_uri"`
	TimeoutMS      int64  `json:"timeout_ms"`
	AlertThreshold *int   `json:"alert_threshold,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type OriginList struct {
	Origins []Origin `json:"origins"`
	Total   int64    `json:"total"`
}

type Queued struct {
	RequestID string `json:"request_id"`
	State     int    `json:"state"`
}
