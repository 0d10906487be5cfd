// Package protocol implements the line-oriented external transport and the
// shared binary encodings (VLQ, CRC16) used to persist and fingerprint
// configuration records.
package protocol

// Version is the motion-core firmware version string.
const Version = "0.1.0-alpha"

// MessageMax bounds the scratch buffers used to assemble a single output
// line (status/queue/exception report or command echo) before it is
// flushed to the transport.
const MessageMax = 512
