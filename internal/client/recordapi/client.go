// Package recordapi is the HTTP client for the remote customer-record service.
//
// Every method resolves to a value or an error; remote failures are always a
// *ServiceError and local input problems a *domain.ValidationError, which is
// returned before any request is made.
package recordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

const (
	headerRequestID = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

var _ ports.RecordService = (*Client)(nil)

// Client talks to the customer-record service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session *domain.Session
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every request. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// New returns a Client for the service at baseURL, e.g. http://127.0.0.1:8000.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     log.With().Str("component", "recordapi").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a copy of c that authenticates as s. Passing nil
// returns an anonymous copy.
func (c *Client) WithSession(s *domain.Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// --- wire types ---

// opaqueID accepts both string and numeric identifiers from the server.
type opaqueID string

func (id *opaqueID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*id = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = opaqueID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = opaqueID(n.String())
	}
	return nil
}

type customerWire struct {
	ID          opaqueID        `json:"id"`
	Name        string          `json:"name"`
	PhoneNumber string          `json:"phone_number"`
	Balance     decimal.Decimal `json:"balance"`
	Password    string          `json:"password"`
}

type listResponse struct {
	Customers []customerWire `json:"customers"`
}

type customerRequest struct {
	Name        string      `json:"name"`
	Balance     json.Number `json:"balance"`
	PhoneNumber string      `json:"phone_number"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Status     int    `json:"status"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Token      string `json:"token"`
	CustomerID string `json:"customer_id"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (w customerWire) toDomain() domain.Customer {
	return domain.Customer{
		ID:          string(w.ID),
		Name:        w.Name,
		PhoneNumber: w.PhoneNumber,
		Balance:     w.Balance,
		Password:    w.Password,
	}
}

func toRequest(in ports.CustomerInput) customerRequest {
	return customerRequest{
		Name:        in.Name,
		Balance:     json.Number(in.Balance.String()),
		PhoneNumber: in.PhoneNumber,
	}
}

// --- operations ---

// ListCustomers fetches every record visible to the session, in server order.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var resp listResponse
	if err := c.do(ctx, "list customers", http.MethodGet, "/customers/", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(resp.Customers))
	for _, w := range resp.Customers {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// CreateCustomer creates a record. The returned record carries the generated
// password when the server sends it.
func (c *Client) CreateCustomer(ctx context.Context, in ports.CustomerInput) (domain.Customer, error) {
	if err := checkInput("", in, false); err != nil {
		return domain.Customer{}, err
	}
	var out customerWire
	if err := c.do(ctx, "create customer", http.MethodPost, "/customers/", toRequest(in), &out); err != nil {
		return domain.Customer{}, err
	}
	return out.toDomain(), nil
}

// UpdateCustomer overwrites name, balance and phone number of record id.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in ports.CustomerInput) (domain.Customer, error) {
	if err := checkInput(id, in, true); err != nil {
		return domain.Customer{}, err
	}
	var out customerWire
	path := "/customers/" + url.PathEscape(id)
	if err := c.do(ctx, "update customer", http.MethodPut, path, toRequest(in), &out); err != nil {
		return domain.Customer{}, err
	}
	rec := out.toDomain()
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// DeleteCustomer removes record id. Deleting an id twice yields a
// KindNotFound error the second time.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{Fields: map[string]string{"id": "id is required"}}
	}
	return c.do(ctx, "delete customer", http.MethodDelete, "/customers/"+url.PathEscape(id), nil, nil)
}

// Login authenticates name/password for the role the caller picked. The
// server decides whether the pairing is valid.
func (c *Client) Login(ctx context.Context, name, password string, role domain.Role) (domain.Session, error) {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "name is required"
	}
	if password == "" {
		fields["password"] = "password is required"
	}
	if !role.Valid() {
		fields["role"] = "role must be one of: admin customer"
	}
	if len(fields) > 0 {
		return domain.Session{}, &domain.ValidationError{Fields: fields}
	}

	var resp loginResponse
	req := loginRequest{Name: name, Password: password, Role: role.String()}
	if err := c.do(ctx, "login", http.MethodPost, "/login", req, &resp); err != nil {
		return domain.Session{}, err
	}
	if resp.Status != 0 && resp.Status != http.StatusOK {
		return domain.Session{}, &ServiceError{Kind: KindServerRejected, Op: "login", Status: resp.Status, Message: "login refused"}
	}

	granted, err := domain.ParseRole(resp.Role)
	if err != nil {
		return domain.Session{}, &ServiceError{Kind: KindUnknown, Op: "login", Err: err}
	}
	display := resp.Name
	if display == "" {
		display = name
	}
	return domain.Session{
		Name:       display,
		Role:       granted,
		CustomerID: resp.CustomerID,
		Token:      resp.Token,
		StartedAt:  time.Now().UTC(),
	}, nil
}

func checkInput(id string, in ports.CustomerInput, needID bool) error {
	fields := map[string]string{}
	if needID && strings.TrimSpace(id) == "" {
		fields["id"] = "id is required"
	}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		fields["phone_number"] = "phone_number is required"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// --- transport ---

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &ServiceError{Kind: KindUnknown, Op: op, Err: err}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return &ServiceError{Kind: KindUnknown, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(headerRequestID, reqID)
	if c.session.Active() && c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		se := transportError(ctx, op, err)
		c.log.Warn().Err(err).Str("op", op).Str("request_id", reqID).Str("kind", se.Kind.String()).Msg("request failed")
		return se
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Kind: KindUnknown, Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func transportError(ctx context.Context, op string, err error) *ServiceError {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return &ServiceError{Kind: KindTimeout, Op: op, Err: err}
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return &ServiceError{Kind: KindUnknown, Op: op, Err: err}
	default:
		return &ServiceError{Kind: KindUnreachable, Op: op, Err: err}
	}
}

func statusError(op string, resp *http.Response) *ServiceError {
	kind := KindServerRejected
	if resp.StatusCode == http.StatusNotFound {
		kind = KindNotFound
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er errorResponse
	msg := ""
	if json.Unmarshal(raw, &er) == nil {
		msg = er.Error
		if msg == "" {
			msg = er.Detail
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{Kind: kind, Op: op, Status: resp.StatusCode, Message: msg}
}
