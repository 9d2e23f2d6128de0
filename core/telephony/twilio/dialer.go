package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

const callStatusCompleted = "completed"

var ErrMissingCredentials = errors.New("twilio account sid and auth token are required")

// APIError is a non-2xx answer from the Twilio REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twilio: %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio: %d", e.StatusCode)
}

// Dialer places an outbound call for each session and ends it on hang up.
type Dialer struct {
	accountSID  string
	authToken   string
	from        string
	to          string
	twiml       string
	callbackURL string

	baseURL    string
	httpClient *http.Client
}

type DialerOption func(*Dialer)

func WithBaseURL(baseURL string) DialerOption {
	return func(d *Dialer) { d.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) DialerOption {
	return func(d *Dialer) {
		if httpClient != nil {
			d.httpClient = httpClient
		}
	}
}

// WithTwiML sets the instructions Twilio runs once the callee answers.
func WithTwiML(twiml string) DialerOption {
	return func(d *Dialer) { d.twiml = twiml }
}

// WithCallbackURL makes Twilio fetch its instructions from callbackURL instead of
// inline TwiML.
func WithCallbackURL(callbackURL string) DialerOption {
	return func(d *Dialer) { d.callbackURL = callbackURL }
}

func NewDialer(accountSID, authToken, from, to string, opts ...DialerOption) (*Dialer, error) {
	if accountSID == "" || authToken == "" {
		return nil, ErrMissingCredentials
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("twilio dialer needs both from and to numbers")
	}

	d := &Dialer{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		twiml:      "<Response><Pause length=\"60\"/></Response>",
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return "twilio " + request.Method
			}),
		)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Dial creates the call and returns its SID.
func (d *Dialer) Dial(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("To", d.to)
	form.Set("From", d.from)
	if d.callbackURL != "" {
		form.Set("Url", d.callbackURL)
	} else {
		form.Set("Twiml", d.twiml)
	}

	created, err := d.post(ctx, "dial", "/Accounts/"+url.PathEscape(d.accountSID)+"/Calls.json", form)
	if err != nil {
		return "", fmt.Errorf("failed to place call: %w", err)
	}
	if created.SID == "" {
		return "", fmt.Errorf("failed to place call: response without call sid")
	}

	logger.Info("call placed", "call_sid", created.SID, "status", created.Status)
	return created.SID, nil
}

// Hangup completes the call. An empty call ID is a no-op.
func (d *Dialer) Hangup(ctx context.Context, callID string) error {
	if callID == "" {
		return nil
	}

	form := url.Values{}
	form.Set("Status", callStatusCompleted)
	path := "/Accounts/" + url.PathEscape(d.accountSID) + "/Calls/" + url.PathEscape(callID) + ".json"
	if _, err := d.post(ctx, "hangup", path, form); err != nil {
		return fmt.Errorf("failed to hang up call %s: %w", callID, err)
	}

	logger.Info("call completed", "call_sid", callID)
	return nil
}

func (d *Dialer) post(ctx context.Context, name, path string, form url.Values) (call, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return call{}, err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return call{}, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return call{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		return call{}, apiErr
	}

	var result call
	if err := json.Unmarshal(body, &result); err != nil {
		err = fmt.Errorf("error unmarshalling JSON: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return call{}, err
	}
	span.SetAttributes(attribute.String("call.sid", result.SID))
	return result, nil
}
