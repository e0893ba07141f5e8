// Package indexer provides the HTTP client for the remote indexing and chat
// service.
//
// Batch uploads travel as one multipart/form-data request: device files as
// "files" parts, URL and webpage items as a JSON "urls" field of
// {url, kind} descriptors, plus a "manifest" field that lists every item in
// submission order so the reply can be matched by position.
//
// Requests are throttled with a token bucket (golang.org/x/time/rate) and
// carry a bearer token through an oauth2 transport. HTTP failures map onto
// the domain sentinels:
//
//	401, 403        domain.ErrUnauthorized
//	404             domain.ErrNotFound
//	429             domain.ErrRateLimited (the limiter backs off)
//	5xx, transport  domain.ErrRemoteUnavailable
//	undecodable     domain.ErrProtocol
package indexer
