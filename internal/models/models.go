// Package models defines the core data structures for LifeTracker.
//
// It includes the conversational session and flow types, stored entity records,
// chat messages and the JSON envelope shared by the HTTP API.
package models

import (
	"errors"
	"strings"
)

// Validation constants for input validation
const (
	// MaxUtteranceLength defines the maximum allowed length for a single chat utterance
	MaxUtteranceLength = 2000
	// MaxSessionIDLength defines the maximum allowed length for a session identifier
	MaxSessionIDLength = 128
)

// Error variables for better error handling and testability
var (
	ErrEmptyText         = errors.New("text is required")
	ErrTextTooLong       = errors.New("text exceeds maximum length")
	ErrMissingSession    = errors.New("session_id or user_id is required")
	ErrSessionIDTooLong  = errors.New("session_id exceeds maximum length")
	ErrEmptyRecipient    = errors.New("recipient cannot be empty")
	ErrInvalidEntityKind = errors.New("invalid entity kind")
)

// MessageStatus represents the delivery status of an outbound transport message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt is a delivery event emitted by a messaging service.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming text message from a user on a messaging transport.
type Response struct {
	MessageID string `json:"message_id,omitempty"` // transport message id, used for deduplication
	From      string `json:"from"`
	Body      string `json:"body"`
	Time      int64  `json:"time"`
}

// ChatRequest is the payload of one chat turn submitted over the HTTP API.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Text      string `json:"text"`
}

// Validate checks the request and fills SessionID from UserID when absent.
func (r *ChatRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxUtteranceLength {
		return ErrTextTooLong
	}
	if r.SessionID == "" {
		r.SessionID = r.UserID
	}
	if r.SessionID == "" {
		return ErrMissingSession
	}
	if len(r.SessionID) > MaxSessionIDLength {
		return ErrSessionIDTooLong
	}
	return nil
}

// ChatResponse is the result of one chat turn returned over the HTTP API.
type ChatResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
