// Package errors defines error types for the Copilot SDK.
//
// All SDK errors implement the CopilotSDKError interface for
// easy type checking.
package errors
