// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// REPLY TYPE
// =============================================================================

// ReplyKind tags the outcome of one exchange with the generation backend.
type ReplyKind int

const (
	// ReplySuccess carries usable model text.
	ReplySuccess ReplyKind = iota
	// ReplyBlocked means the backend refused the prompt on content policy.
	ReplyBlocked
	// ReplyMalformed means a 2xx response without usable text.
	ReplyMalformed
	// ReplyFailed means the exchange itself failed (network or HTTP status).
	ReplyFailed
)

// String returns the kind's name, used as a log field and metric label.
func (k ReplyKind) String() string {
	switch k {
	case ReplySuccess:
		return "success"
	case ReplyBlocked:
		return "blocked"
	case ReplyMalformed:
		return "malformed"
	case ReplyFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reply is the decoded result of one exchange. Exactly the fields relevant
// to Kind are set: Text for success, BlockReason for blocked, Err for
// failed.
type Reply struct {
	Kind        ReplyKind
	Text        string
	BlockReason string
	Err         error
}

// SuccessReply returns a successful reply.
func SuccessReply(text string) Reply {
	return Reply{Kind: ReplySuccess, Text: text}
}

// BlockedReply returns a content-blocked reply.
func BlockedReply(reason string) Reply {
	return Reply{Kind: ReplyBlocked, BlockReason: reason}
}

// MalformedReply returns a reply for an unusable 2xx payload.
func MalformedReply() Reply {
	return Reply{Kind: ReplyMalformed}
}

// FailedReply returns a transport failure.
func FailedReply(err error) Reply {
	return Reply{Kind: ReplyFailed, Err: err}
}
