package errors

import "github.com/pkg/errors"

var (
	// input errors, detected before any I/O
	ErrSenderNotFound = errors.New("sender not found")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")

	// mailbox errors
	ErrConnectionRefused = errors.New("mail server refused the connection, try again later")
	ErrSessionClosed     = errors.New("mailbox session is closed")

	// attachment errors
	ErrDecodeFailed = errors.New("attachment is not a readable workbook")

	// archive errors
	ErrArchiveFailed = errors.New("failed to build downloads archive")
)
