package port

import (
	"encoding/json"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/errmap"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// ReadMirror serves the read-only REST projection of session metadata.
// There are no mutating HTTP routes; writes go through gRPC only.
type ReadMirror struct {
	svc verificationService
}

// NewReadMirror creates a ReadMirror backed by the given verification
// service.
func NewReadMirror(svc *app.Service) *ReadMirror {
	return &ReadMirror{svc: svc}
}

// Register mounts the mirror's routes on the gateway mux.
func (m *ReadMirror) Register(mux *runtime.ServeMux) error {
	return mux.HandlePath(http.MethodGet, "/v1/verification/session/{session_id}", m.getSession)
}

// sessionResource is the REST shape of session metadata. The session id is
// the canonical UUID string rather than the gRPC surface's raw bytes.
type sessionResource struct {
	SessionID string `json:"session_id"`
	E164      uint64 `json:"e164"`
	Verified  bool   `json:"verified"`
}

func (m *ReadMirror) getSession(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := domain.NewSessionID(pathParams["session_id"])
	if err != nil {
		writeHTTPError(w, err)
		return
	}

	session, err := m.svc.GetSession(r.Context(), id)
	if err != nil {
		writeHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResource{
		SessionID: session.ID.String(),
		E164:      session.Phone.E164(),
		Verified:  session.Verified(),
	})
}

func writeHTTPError(w http.ResponseWriter, err error) {
	httpErr := errmap.ToHTTPError(err)
	writeJSON(w, httpErr.StatusCode, httpErr)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
