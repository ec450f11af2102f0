package midtrans

import (
	"context"
	"errors"
	"net/http"
	"strings"

	mt "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/mahendraputra/lokapasar-backend/pkg/config"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errServerKeyRequired = errors.New("midtrans server key is required")
	errInvalidEnv        = errors.New(`midtrans environment must be "sandbox" or "production"`)
	errLoggerRequired    = errors.New("midtrans logger is required")
)

// SnapGateway is the surface of the Snap API the platform depends on.
// The SDK client satisfies it through snapAdapter; tests substitute fakes.
type SnapGateway interface {
	CreateTransaction(req *snap.Request) (*snap.Response, error)
}

// ChargeRequest carries everything needed to open a Snap checkout session.
type ChargeRequest struct {
	GatewayOrderID string
	GrossAmount    int64
	CustomerEmail  string
	Items          []ChargeItem
}

// ChargeItem is one order line forwarded to the gateway.
type ChargeItem struct {
	ID       string
	Name     string
	Price    int64
	Quantity int32
}

// ChargeSession is the gateway handle the buyer completes payment with.
type ChargeSession struct {
	Token       string
	RedirectURL string
}

// Client wraps the Snap SDK with centralized config, logging and error mapping.
type Client struct {
	gateway   SnapGateway
	serverKey string
	env       string
	logger    *logger.Logger
}

// NewClient initializes the Snap wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MidtransConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	serverKey := strings.TrimSpace(cfg.ServerKey)
	if serverKey == "" {
		return nil, errServerKeyRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	sdkEnv := mt.Sandbox
	if env == productionEnv {
		sdkEnv = mt.Production
	}
	if cfg.RequestTimeout > 0 {
		mt.DefaultGoHttpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	var sdk snap.Client
	sdk.New(serverKey, sdkEnv)

	c := &Client{
		gateway:   snapAdapter{sdk: &sdk},
		serverKey: serverKey,
		env:       env,
		logger:    logg,
	}

	logg.Info(ctx, "midtrans client initialized")
	return c, nil
}

// NewClientWithGateway wires a custom gateway, used by tests.
func NewClientWithGateway(gateway SnapGateway, serverKey string, logg *logger.Logger) *Client {
	return &Client{gateway: gateway, serverKey: serverKey, env: sandboxEnv, logger: logg}
}

// ServerKey returns the configured server key.
func (c *Client) ServerKey() string {
	if c == nil {
		return ""
	}
	return c.serverKey
}

// Environment reports the normalized gateway environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

// CreateCharge opens a Snap checkout session for the given order reference.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	items := make([]mt.ItemDetails, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, mt.ItemDetails{
			ID:    item.ID,
			Name:  truncateItemName(item.Name),
			Price: item.Price,
			Qty:   item.Quantity,
		})
	}

	snapReq := &snap.Request{
		TransactionDetails: mt.TransactionDetails{
			OrderID:  req.GatewayOrderID,
			GrossAmt: req.GrossAmount,
		},
		Items: &items,
	}
	if req.CustomerEmail != "" {
		snapReq.CustomerDetail = &mt.CustomerDetails{Email: req.CustomerEmail}
	}

	resp, err := c.gateway.CreateTransaction(snapReq)
	if err != nil {
		c.logger.Error(ctx, "snap create transaction failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	if resp == nil || resp.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway returned empty session")
	}

	return &ChargeSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// snapAdapter converts the SDK's *midtrans.Error into a plain error so the
// gateway interface stays mockable.
type snapAdapter struct {
	sdk *snap.Client
}

func (a snapAdapter) CreateTransaction(req *snap.Request) (*snap.Response, error) {
	resp, sdkErr := a.sdk.CreateTransaction(req)
	if sdkErr != nil {
		return nil, sdkErr
	}
	return resp, nil
}

func normalizeEnv(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", sandboxEnv:
		return sandboxEnv, nil
	case productionEnv:
		return productionEnv, nil
	default:
		return "", errInvalidEnv
	}
}

// Snap caps item names at 50 characters.
func truncateItemName(name string) string {
	const maxLen = 50
	if len(name) <= maxLen {
		return name
	}
	return name[:maxLen]
}
