package dto

import "time"

// FetchOrdersRequest starts an ingestion job for one sender and one
// calendar day.
type FetchOrdersRequest struct {
	SenderID string `json:"senderId" binding:"required"`
	Day      string `json:"day" binding:"required"`
	// SaveFolder keeps the working folder on disk after archiving.
	SaveFolder bool `json:"saveFolder"`
}

// FetchedFile is one classified attachment written into the job folder.
type FetchedFile struct {
	Filename string `json:"filename"`
	Supplier string `json:"supplier"`
	Company  string `json:"company"`
	City     string `json:"city"`
}

// EmailSummary is the metadata of one processed message.
type EmailSummary struct {
	Subject     string        `json:"emailTitle"`
	Date        time.Time     `json:"emailDate"`
	From        string        `json:"emailFrom"`
	Attachments []FetchedFile `json:"attachments"`
}

// JobResult is the synchronous outcome of an ingestion job.
type JobResult struct {
	JobID          string         `json:"jobId"`
	Success        bool           `json:"success"`
	MessagesNum    int            `json:"messagesNum"`
	FetchedFiles   []FetchedFile  `json:"fetchedFiles,omitempty"`
	Emails         []EmailSummary `json:"emails,omitempty"`
	MainFolderName string         `json:"mainFolderName,omitempty"`
	DownloadURL    string         `json:"downloadUrl,omitempty"`
	Message        string         `json:"message"`
}

// JobProgress is one event on the progress stream. Progress is a
// percentage in [0,100]; a terminal event carries Done plus either
// Result or Error.
type JobProgress struct {
	JobID    string     `json:"jobId,omitempty"`
	Status   string     `json:"status"`
	Progress int        `json:"progress,omitempty"`
	Done     bool       `json:"done,omitempty"`
	Result   *JobResult `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}
