// Package otpv1 defines the pipeline-facing OTPService: its messages, the gRPC service
// descriptor, and the JSON codec the messages travel in.
package otpv1

import "time"

// OTPRequest is the wire form of an OTP request.
type OTPRequest struct {
	Id                 string     `json:"id"`
	ProjectId          string     `json:"project_id"`
	State              string     `json:"state"`
	Response           string     `json:"response,omitempty"`
	UserThatResponded  string     `json:"user_that_responded,omitempty"`
	RespondedAt        *time.Time `json:"responded_at,omitempty"`
	MessageId          string     `json:"message_id,omitempty"`
	ChannelId          string     `json:"channel_id,omitempty"`
	RequestDescription string     `json:"request_description,omitempty"`
	RequestUrl         string     `json:"request_url,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
}

// RequestInformation describes the pipeline run asking for the OTP.
type RequestInformation struct {
	Description string `json:"description,omitempty"`
	Url         string `json:"url,omitempty"`
}

type CreateOTPRequestRequest struct {
	RequestInformation *RequestInformation `json:"request_information,omitempty"`
}

type CreateOTPRequestResponse struct {
	Request *OTPRequest `json:"request"`
}

type GetOTPRequestRequest struct {
	Id string `json:"id"`
}

type GetOTPRequestResponse struct {
	Request *OTPRequest `json:"request"`
}

type ValidateOTPRequestRequest struct {
	Id string `json:"id"`
}

type ValidateOTPRequestResponse struct {
	Request *OTPRequest `json:"request"`
}

type InvalidateOTPRequestRequest struct {
	Id string `json:"id"`
}

type InvalidateOTPRequestResponse struct {
	Request *OTPRequest `json:"request"`
}

type RetryOTPRequestRequest struct {
	Id string `json:"id"`
}

type RetryOTPRequestResponse struct {
	Request *OTPRequest `json:"request"`
}
