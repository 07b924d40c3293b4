package bankadmin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	statusOK = []byte(`{"status":"OK"}`)
)

type dashboardJSONResp struct {
	TotalAccounts int    `json:"total_accounts"`
	TotalBalance  string `json:"total_balance"`
	Admin         string `json:"admin"`
}

type loginJSONReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewHTTPHandler(svc Service, auth *Authenticator, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc:  svc,
		Auth: auth,
		Log:  log,
	}
	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(hndlr.accessLog)
	mux.NotFound(HTTPNotFound)

	mux.Route("/auth", func(r chi.Router) {
		r.Get("/login", hndlr.LoginHint)
		r.Post("/login", hndlr.Login)
		r.Post("/logout", hndlr.Logout)
	})

	mux.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		r.Get("/dashboard", hndlr.Dashboard)
		r.Get("/transactions", hndlr.Transactions)
		r.Post("/profit-distributions", hndlr.DistributeProfit)
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", hndlr.Accounts)
			r.Post("/", hndlr.Register)
			r.Route("/{acctID:[0-9]+}", func(rr chi.Router) {
				rr.Get("/", hndlr.Account)
				rr.Put("/", hndlr.EditAccount)
				rr.Delete("/", hndlr.DeleteAccount)
				rr.Post("/operations", hndlr.Operate)
				rr.Get("/transactions", hndlr.Transactions)
				rr.Get("/statement", hndlr.Statement)
			})
		})
	})

	return mux
}

type httpHandler struct {
	Svc  Service
	Auth *Authenticator
	Log  *zerolog.Logger
}

func (h *httpHandler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.Log.Info().
				Str("requestID", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *httpHandler) LoginHint(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "login required"})
}

func (h *httpHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginJSONReq
	if err := h.decode(r, "login", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	sess, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			h.Log.Err(err).Str("method", "login").Msg("error logging in")
		}
		WriteHTTPError(w, err)
		return
	}
	http.SetCookie(w, h.Auth.sessionCookie(sess))
	writeJSON(w, http.StatusOK, sess)
}

func (h *httpHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusOK)
}

func (h *httpHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Svc.Accounts(r.Context())
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardJSONResp{
		TotalAccounts: overview.TotalAccounts,
		TotalBalance:  overview.TotalBalance.StringFixed(2),
		Admin:         AdminFromContext(r.Context()),
	})
}

func (h *httpHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Svc.Accounts(r.Context())
	if err != nil {
		h.fail(w, "accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *httpHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := h.decode(r, "register", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	acct, err := h.Svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *httpHandler) Account(w http.ResponseWriter, r *http.Request) {
	acctID, err := h.acctID(r, "account")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	acct, err := h.Svc.Account(r.Context(), AccountReq{AcctID: acctID})
	if err != nil {
		h.fail(w, "account", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *httpHandler) EditAccount(w http.ResponseWriter, r *http.Request) {
	var req EditReq
	if err := h.decode(r, "editAccount", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	acctID, err := h.acctID(r, "editAccount")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	req.AcctID = acctID
	acct, err := h.Svc.EditAccount(r.Context(), req)
	if err != nil {
		h.fail(w, "editAccount", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *httpHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	acctID, err := h.acctID(r, "deleteAccount")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	if err = h.Svc.DeleteAccount(r.Context(), DeleteReq{AcctID: acctID}); err != nil {
		h.fail(w, "deleteAccount", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusOK)
}

func (h *httpHandler) Operate(w http.ResponseWriter, r *http.Request) {
	var req OperationReq
	if err := h.decode(r, "operate", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	acctID, err := h.acctID(r, "operate")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	req.AcctID = acctID
	res, err := h.Svc.Operate(r.Context(), req)
	if err != nil {
		h.fail(w, "operate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandler) DistributeProfit(w http.ResponseWriter, r *http.Request) {
	var req ProfitReq
	if err := h.decode(r, "distributeProfit", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	res, err := h.Svc.DistributeProfit(r.Context(), req)
	if err != nil {
		h.fail(w, "distributeProfit", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	var req TransactionsReq
	if chi.URLParam(r, "acctID") != "" {
		acctID, err := h.acctID(r, "transactions")
		if err != nil {
			WriteHTTPError(w, err)
			return
		}
		req.AcctID = acctID
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"limit": "invalid format"}})
			return
		}
		req.Limit = limit
	}
	txns, err := h.Svc.Transactions(r.Context(), req)
	if err != nil {
		h.fail(w, "transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]Transaction{"transactions": txns})
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	acctID, err := h.acctID(r, "statement")
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	req := StatementReq{
		AcctID: acctID,
		Format: StatementFormat(r.URL.Query().Get("format")),
	}
	st, err := h.Svc.Statement(r.Context(), req)
	if err != nil {
		h.fail(w, "statement", err)
		return
	}

	buf := new(bytes.Buffer)
	if err = st.Render(buf); err != nil {
		h.fail(w, "statement", err)
		return
	}
	w.Header().Set("Content-Type", st.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, st.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err = buf.WriteTo(w); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing statement")
	}
}

func (h *httpHandler) decode(r *http.Request, method string, v any) error {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error reading HTTP request")
		return ErrInternalServer
	}
	if err = json.Unmarshal(buf, v); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error unmarshalling JSON")
		return ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}}
	}
	return nil
}

func (h *httpHandler) acctID(r *http.Request, method string) (snowflake.ID, error) {
	pid := chi.URLParam(r, "acctID")
	acctID, err := snowflake.ParseString(pid)
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error parsing account ID")
		return 0, ErrBadRequest{Fields: map[string]string{"acctID": "invalid format"}}
	}
	return acctID, nil
}

// fail logs server-side failures before mapping err to a response.
func (h *httpHandler) fail(w http.ResponseWriter, method string, err error) {
	if !isRejection(err) {
		h.Log.Err(err).Str("method", method).Msg("request failed")
	}
	WriteHTTPError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Msg("response encoding failed")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	errif := &ErrInsufficientFunds{}
	errda := &ErrDuplicateAccount{}
	errne := &ErrAccountNotEmpty{}
	switch {
	case errors.As(err, errnf):
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	case errors.As(err, errbr):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	case errors.As(err, errif):
		w.WriteHeader(http.StatusConflict)
		ne = json.NewEncoder(w).Encode(map[string]any{"message": errif.Error(), "insufficient_funds": errif})
	case errors.As(err, errda):
		w.WriteHeader(http.StatusConflict)
		ne = json.NewEncoder(w).Encode(map[string]any{"message": errda.Error(), "duplicate": errda})
	case errors.As(err, errne):
		w.WriteHeader(http.StatusConflict)
		ne = json.NewEncoder(w).Encode(map[string]any{"message": errne.Error(), "account": errne})
	case errors.Is(err, ErrUnauthorized):
		w.WriteHeader(http.StatusUnauthorized)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
	case errors.Is(err, ErrServiceUnavailable):
		w.WriteHeader(http.StatusServiceUnavailable)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]string{
			"message": "server error",
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
