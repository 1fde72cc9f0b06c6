// Package provider defines the capability every model backend pipeline
// implements. Each wire protocol lives in its own subpackage (responses,
// chat, gemini) and handles request construction and response
// interpretation internally; callers only ever see normalized
// api.ResponseEvent values through a bridge.ResponseStream.
package provider
