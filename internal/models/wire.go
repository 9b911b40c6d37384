package models

// SyncEntry is one element of the response batch POSTed to the server. The
// server accepts the client-chosen submissionId as the durable key.
type SyncEntry struct {
	FormID         int            `json:"FormID"`
	SubmissionDate string         `json:"submissionDate"`
	SubmissionTime string         `json:"submissionTime"`
	Answers        map[int]Answer `json:"answers"`
	LocalTimestamp string         `json:"localTimestamp"`
	SubmissionID   string         `json:"submissionId"`
}

// SyncResponseRef maps a client submission identifier to the identifier the
// server stored it under.
type SyncResponseRef struct {
	LocalID  string `json:"localId"`
	ServerID string `json:"serverId"`
}

// SyncResult is the server's reply to a response batch sync.
type SyncResult struct {
	Count     int               `json:"count"`
	Responses []SyncResponseRef `json:"responses"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries the bearer token issued on successful login.
type LoginResult struct {
	Token string `json:"token"`
}
