package syscmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/granite-bot/server/internal/bot/model"
)

// Command names recognised in model output, matching the sentinels the
// system prompt teaches the model to emit.
const (
	CommandGetPriceList = "get_price_list"
	CommandCheckStock   = "check_stock"
	CommandCallManager  = "call_manager"
)

// maxServiceResponseBytes bounds how much of an internal service reply is
// fed back into the model prompt.
const maxServiceResponseBytes = 16 << 10

// PriceListConfig configures the price list command.
type PriceListConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// PriceListHandler fetches the company price list from an internal service.
type PriceListHandler struct {
	config     PriceListConfig
	httpClient *http.Client
}

func NewPriceListHandler(config PriceListConfig) *PriceListHandler {
	timeout := 10 * time.Second
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	return &PriceListHandler{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h *PriceListHandler) Handle(ctx context.Context, _ Request) (Response, error) {
	body, err := fetch(ctx, h.httpClient, h.config.URL)
	if err != nil {
		return Response{}, err
	}
	return Response{Result: body}, nil
}

// StockConfig configures the stock availability command.
type StockConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// StockHandler checks product availability against an internal service.
// The product name arrives as the first command parameter.
type StockHandler struct {
	config     StockConfig
	httpClient *http.Client
}

func NewStockHandler(config StockConfig) *StockHandler {
	timeout := 10 * time.Second
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	return &StockHandler{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h *StockHandler) Handle(ctx context.Context, request Request) (Response, error) {
	if len(request.Parameters) == 0 || request.Parameters[0] == "" {
		return Response{}, fmt.Errorf("check_stock: product name parameter is required")
	}

	target, err := url.Parse(h.config.URL)
	if err != nil {
		return Response{}, fmt.Errorf("check_stock: parse url: %w", err)
	}
	query := target.Query()
	query.Set("product", request.Parameters[0])
	target.RawQuery = query.Encode()

	body, err := fetch(ctx, h.httpClient, target.String())
	if err != nil {
		return Response{}, err
	}
	return Response{Result: body}, nil
}

// ManagerConfig configures the call manager command.
type ManagerConfig struct {
	Notice string `yaml:"notice"`
}

// ManagerHandler acknowledges a request for a human manager. Actual
// notification delivery belongs to the surrounding infrastructure; the
// model only needs a confirmation to relay to the customer.
type ManagerHandler struct {
	config ManagerConfig
}

func NewManagerHandler(config ManagerConfig) *ManagerHandler {
	if config.Notice == "" {
		config.Notice = "Менеджер уведомлён и скоро подключится к диалогу"
	}
	return &ManagerHandler{config: config}
}

func (h *ManagerHandler) Handle(_ context.Context, _ Request) (Response, error) {
	return Response{Result: h.config.Notice}, nil
}

// NewHandler constructs a command handler from catalog configuration.
func NewHandler(config model.CommandConfig) (Handler, error) {
	switch config.Type {
	case "priceList":
		var params PriceListConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewPriceListHandler(params), nil
	case "checkStock":
		var params StockConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewStockHandler(params), nil
	case "callManager":
		var params ManagerConfig
		if err := decodeParams(config.Params, &params); err != nil {
			return nil, err
		}
		return NewManagerHandler(params), nil
	default:
		return nil, fmt.Errorf("unknown system command handler type %q", config.Type)
	}
}

// NewPipelineFromConfig assembles a command pipeline from a bot's command
// configuration.
func NewPipelineFromConfig(configs []model.CommandConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, config := range configs {
		handler, err := NewHandler(config)
		if err != nil {
			return nil, err
		}
		p.Register(config.Command, handler)
	}
	return p, nil
}

func decodeParams(node yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("decode command params: %w", err)
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxServiceResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read service response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
