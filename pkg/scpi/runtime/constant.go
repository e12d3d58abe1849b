package runtime

import "errors"

var ErrControlHeld = errors.New("Scpi control held by another client\n")
var ErrClientPresent = errors.New("Scpi client already connected\n")
var ErrClientNotFound = errors.New("No scpi client with that address\n")
var ErrLineTooLong = errors.New("Scpi input line too long\n")

const (
	DefaultPort = 5025

	// InputBufferLength bounds one command line, not counting the newline
	// terminator.
	InputBufferLength = 256
	WriteBufferLength = 256

	// Version is the SCPI standard revision reported by SYSTem:VERSion?.
	Version = "1999.0"

	Manufacturer = "Riden"
)
