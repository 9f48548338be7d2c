package verificationv1

import (
	"google.golang.org/protobuf/runtime/protoimpl"
)

// Transport is the requested delivery channel for a verification code.
type Transport int32

const (
	Transport_TRANSPORT_UNSPECIFIED Transport = 0
	Transport_TRANSPORT_SMS         Transport = 1
	Transport_TRANSPORT_VOICE       Transport = 2
)

var transportNames = map[Transport]string{
	Transport_TRANSPORT_UNSPECIFIED: "TRANSPORT_UNSPECIFIED",
	Transport_TRANSPORT_SMS:         "TRANSPORT_SMS",
	Transport_TRANSPORT_VOICE:       "TRANSPORT_VOICE",
}

func (t Transport) String() string {
	if name, ok := transportNames[t]; ok {
		return name
	}
	return "TRANSPORT_UNSPECIFIED"
}

// ClientType identifies the kind of client requesting verification.
type ClientType int32

const (
	ClientType_CLIENT_TYPE_UNSPECIFIED         ClientType = 0
	ClientType_CLIENT_TYPE_IOS                 ClientType = 1
	ClientType_CLIENT_TYPE_ANDROID_WITH_FCM    ClientType = 2
	ClientType_CLIENT_TYPE_ANDROID_WITHOUT_FCM ClientType = 3
)

var clientTypeNames = map[ClientType]string{
	ClientType_CLIENT_TYPE_UNSPECIFIED:         "CLIENT_TYPE_UNSPECIFIED",
	ClientType_CLIENT_TYPE_IOS:                 "CLIENT_TYPE_IOS",
	ClientType_CLIENT_TYPE_ANDROID_WITH_FCM:    "CLIENT_TYPE_ANDROID_WITH_FCM",
	ClientType_CLIENT_TYPE_ANDROID_WITHOUT_FCM: "CLIENT_TYPE_ANDROID_WITHOUT_FCM",
}

func (c ClientType) String() string {
	if name, ok := clientTypeNames[c]; ok {
		return name
	}
	return "CLIENT_TYPE_UNSPECIFIED"
}

// ErrorKind enumerates the in-band domain outcomes.
type ErrorKind int32

const (
	ErrorKind_ERROR_KIND_UNSPECIFIED              ErrorKind = 0
	ErrorKind_ERROR_KIND_RATE_LIMITED             ErrorKind = 1
	ErrorKind_ERROR_KIND_ILLEGAL_PHONE_NUMBER     ErrorKind = 2
	ErrorKind_ERROR_KIND_NOT_FOUND                ErrorKind = 3
	ErrorKind_ERROR_KIND_SESSION_ALREADY_VERIFIED ErrorKind = 4
	ErrorKind_ERROR_KIND_NO_SESSION               ErrorKind = 5
	ErrorKind_ERROR_KIND_SENDER_REJECTED          ErrorKind = 6
	ErrorKind_ERROR_KIND_SENDER_ILLEGAL_ARGUMENT  ErrorKind = 7
	ErrorKind_ERROR_KIND_SENDER_UNAVAILABLE       ErrorKind = 8
	ErrorKind_ERROR_KIND_NO_CODE_SENT             ErrorKind = 9
	ErrorKind_ERROR_KIND_UNAVAILABLE              ErrorKind = 10
)

var errorKindNames = map[ErrorKind]string{
	ErrorKind_ERROR_KIND_UNSPECIFIED:              "ERROR_KIND_UNSPECIFIED",
	ErrorKind_ERROR_KIND_RATE_LIMITED:             "ERROR_KIND_RATE_LIMITED",
	ErrorKind_ERROR_KIND_ILLEGAL_PHONE_NUMBER:     "ERROR_KIND_ILLEGAL_PHONE_NUMBER",
	ErrorKind_ERROR_KIND_NOT_FOUND:                "ERROR_KIND_NOT_FOUND",
	ErrorKind_ERROR_KIND_SESSION_ALREADY_VERIFIED: "ERROR_KIND_SESSION_ALREADY_VERIFIED",
	ErrorKind_ERROR_KIND_NO_SESSION:               "ERROR_KIND_NO_SESSION",
	ErrorKind_ERROR_KIND_SENDER_REJECTED:          "ERROR_KIND_SENDER_REJECTED",
	ErrorKind_ERROR_KIND_SENDER_ILLEGAL_ARGUMENT:  "ERROR_KIND_SENDER_ILLEGAL_ARGUMENT",
	ErrorKind_ERROR_KIND_SENDER_UNAVAILABLE:       "ERROR_KIND_SENDER_UNAVAILABLE",
	ErrorKind_ERROR_KIND_NO_CODE_SENT:             "ERROR_KIND_NO_CODE_SENT",
	ErrorKind_ERROR_KIND_UNAVAILABLE:              "ERROR_KIND_UNAVAILABLE",
}

func (e ErrorKind) String() string {
	if name, ok := errorKindNames[e]; ok {
		return name
	}
	return "ERROR_KIND_UNSPECIFIED"
}

// SessionMetadata is the client-visible projection of a session.
type SessionMetadata struct {
	SessionId []byte `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	E164      uint64 `protobuf:"varint,2,opt,name=e164,proto3" json:"e164,omitempty"`
	Verified  bool   `protobuf:"varint,3,opt,name=verified,proto3" json:"verified,omitempty"`
}

func (m *SessionMetadata) Reset()         { *m = SessionMetadata{} }
func (m *SessionMetadata) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*SessionMetadata) ProtoMessage()    {}

func (m *SessionMetadata) GetSessionId() []byte {
	if m != nil {
		return m.SessionId
	}
	return nil
}

func (m *SessionMetadata) GetE164() uint64 {
	if m != nil {
		return m.E164
	}
	return 0
}

func (m *SessionMetadata) GetVerified() bool {
	if m != nil {
		return m.Verified
	}
	return false
}

// Error is an in-band domain outcome.
type Error struct {
	Kind              ErrorKind `protobuf:"varint,1,opt,name=kind,proto3,enum=verification.v1.ErrorKind" json:"kind,omitempty"`
	MayRetry          bool      `protobuf:"varint,2,opt,name=may_retry,json=mayRetry,proto3" json:"may_retry,omitempty"`
	RetryAfterSeconds uint32    `protobuf:"varint,3,opt,name=retry_after_seconds,json=retryAfterSeconds,proto3" json:"retry_after_seconds,omitempty"`
}

func (m *Error) Reset()         { *m = Error{} }
func (m *Error) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*Error) ProtoMessage()    {}

func (m *Error) GetKind() ErrorKind {
	if m != nil {
		return m.Kind
	}
	return ErrorKind_ERROR_KIND_UNSPECIFIED
}

func (m *Error) GetMayRetry() bool {
	if m != nil {
		return m.MayRetry
	}
	return false
}

func (m *Error) GetRetryAfterSeconds() uint32 {
	if m != nil {
		return m.RetryAfterSeconds
	}
	return 0
}

type CreateSessionRequest struct {
	E164 uint64 `protobuf:"varint,1,opt,name=e164,proto3" json:"e164,omitempty"`
}

func (m *CreateSessionRequest) Reset()         { *m = CreateSessionRequest{} }
func (m *CreateSessionRequest) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*CreateSessionRequest) ProtoMessage()    {}

func (m *CreateSessionRequest) GetE164() uint64 {
	if m != nil {
		return m.E164
	}
	return 0
}

type CreateSessionResponse struct {
	SessionMetadata *SessionMetadata `protobuf:"bytes,1,opt,name=session_metadata,json=sessionMetadata,proto3" json:"session_metadata,omitempty"`
	Error           *Error           `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *CreateSessionResponse) Reset()         { *m = CreateSessionResponse{} }
func (m *CreateSessionResponse) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*CreateSessionResponse) ProtoMessage()    {}

func (m *CreateSessionResponse) GetSessionMetadata() *SessionMetadata {
	if m != nil {
		return m.SessionMetadata
	}
	return nil
}

func (m *CreateSessionResponse) GetError() *Error {
	if m != nil {
		return m.Error
	}
	return nil
}

type GetSessionMetadataRequest struct {
	SessionId []byte `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
}

func (m *GetSessionMetadataRequest) Reset()         { *m = GetSessionMetadataRequest{} }
func (m *GetSessionMetadataRequest) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*GetSessionMetadataRequest) ProtoMessage()    {}

func (m *GetSessionMetadataRequest) GetSessionId() []byte {
	if m != nil {
		return m.SessionId
	}
	return nil
}

type GetSessionMetadataResponse struct {
	SessionMetadata *SessionMetadata `protobuf:"bytes,1,opt,name=session_metadata,json=sessionMetadata,proto3" json:"session_metadata,omitempty"`
	Error           *Error           `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *GetSessionMetadataResponse) Reset()         { *m = GetSessionMetadataResponse{} }
func (m *GetSessionMetadataResponse) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*GetSessionMetadataResponse) ProtoMessage()    {}

func (m *GetSessionMetadataResponse) GetSessionMetadata() *SessionMetadata {
	if m != nil {
		return m.SessionMetadata
	}
	return nil
}

func (m *GetSessionMetadataResponse) GetError() *Error {
	if m != nil {
		return m.Error
	}
	return nil
}

type SendVerificationCodeRequest struct {
	SessionId      []byte     `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Transport      Transport  `protobuf:"varint,2,opt,name=transport,proto3,enum=verification.v1.Transport" json:"transport,omitempty"`
	AcceptLanguage string     `protobuf:"bytes,3,opt,name=accept_language,json=acceptLanguage,proto3" json:"accept_language,omitempty"`
	ClientType     ClientType `protobuf:"varint,4,opt,name=client_type,json=clientType,proto3,enum=verification.v1.ClientType" json:"client_type,omitempty"`
}

func (m *SendVerificationCodeRequest) Reset()         { *m = SendVerificationCodeRequest{} }
func (m *SendVerificationCodeRequest) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*SendVerificationCodeRequest) ProtoMessage()    {}

func (m *SendVerificationCodeRequest) GetSessionId() []byte {
	if m != nil {
		return m.SessionId
	}
	return nil
}

func (m *SendVerificationCodeRequest) GetTransport() Transport {
	if m != nil {
		return m.Transport
	}
	return Transport_TRANSPORT_UNSPECIFIED
}

func (m *SendVerificationCodeRequest) GetAcceptLanguage() string {
	if m != nil {
		return m.AcceptLanguage
	}
	return ""
}

func (m *SendVerificationCodeRequest) GetClientType() ClientType {
	if m != nil {
		return m.ClientType
	}
	return ClientType_CLIENT_TYPE_UNSPECIFIED
}

type SendVerificationCodeResponse struct {
	SessionId       []byte           `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	SessionMetadata *SessionMetadata `protobuf:"bytes,2,opt,name=session_metadata,json=sessionMetadata,proto3" json:"session_metadata,omitempty"`
	Error           *Error           `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *SendVerificationCodeResponse) Reset()         { *m = SendVerificationCodeResponse{} }
func (m *SendVerificationCodeResponse) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*SendVerificationCodeResponse) ProtoMessage()    {}

func (m *SendVerificationCodeResponse) GetSessionId() []byte {
	if m != nil {
		return m.SessionId
	}
	return nil
}

func (m *SendVerificationCodeResponse) GetSessionMetadata() *SessionMetadata {
	if m != nil {
		return m.SessionMetadata
	}
	return nil
}

func (m *SendVerificationCodeResponse) GetError() *Error {
	if m != nil {
		return m.Error
	}
	return nil
}

type CheckVerificationCodeRequest struct {
	SessionId        []byte `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	VerificationCode string `protobuf:"bytes,2,opt,name=verification_code,json=verificationCode,proto3" json:"verification_code,omitempty"`
}

func (m *CheckVerificationCodeRequest) Reset()         { *m = CheckVerificationCodeRequest{} }
func (m *CheckVerificationCodeRequest) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*CheckVerificationCodeRequest) ProtoMessage()    {}

func (m *CheckVerificationCodeRequest) GetSessionId() []byte {
	if m != nil {
		return m.SessionId
	}
	return nil
}

func (m *CheckVerificationCodeRequest) GetVerificationCode() string {
	if m != nil {
		return m.VerificationCode
	}
	return ""
}

type CheckVerificationCodeResponse struct {
	Verified        bool             `protobuf:"varint,1,opt,name=verified,proto3" json:"verified,omitempty"`
	SessionMetadata *SessionMetadata `protobuf:"bytes,2,opt,name=session_metadata,json=sessionMetadata,proto3" json:"session_metadata,omitempty"`
	Error           *Error           `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *CheckVerificationCodeResponse) Reset()         { *m = CheckVerificationCodeResponse{} }
func (m *CheckVerificationCodeResponse) String() string { return protoimpl.X.MessageStringOf(protoimpl.X.ProtoMessageV2Of(m)) }
func (*CheckVerificationCodeResponse) ProtoMessage()    {}

func (m *CheckVerificationCodeResponse) GetVerified() bool {
	if m != nil {
		return m.Verified
	}
	return false
}

func (m *CheckVerificationCodeResponse) GetSessionMetadata() *SessionMetadata {
	if m != nil {
		return m.SessionMetadata
	}
	return nil
}

func (m *CheckVerificationCodeResponse) GetError() *Error {
	if m != nil {
		return m.Error
	}
	return nil
}
