package bridge

// sendRequest is the JSON body for POST {base}/send.
type sendRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// downloadRequest is the JSON body for POST {base}/download.
type downloadRequest struct {
	MessageID string `json:"message_id"`
	ChatJID   string `json:"chat_jid"`
}

// apiResponse is the bridge's uniform response envelope.
type apiResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
}
