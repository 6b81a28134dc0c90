package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// EtherscanClient fetches verified contract source code from the Etherscan
// API so deployed contracts can be ingested by address.
type EtherscanClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// ContractSource is the verified source of a deployed contract.
type ContractSource struct {
	ContractName    string `json:"contract_name"`
	SourceCode      string `json:"source_code"`
	CompilerVersion string `json:"compiler_version"`
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanSourceEntry struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
}

// NewEtherscanClient creates a client for the Etherscan contract API.
// It returns an error if the API key is empty; the caller decides whether
// the feature is enabled at all.
func NewEtherscanClient(apiKey string) (*EtherscanClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ETHERSCAN_API_KEY is not set")
	}

	return &EtherscanClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    "https://api.etherscan.io/api",
	}, nil
}

// FetchSource retrieves the verified source code for a contract address.
//
// The Etherscan API reports failures both through HTTP status codes and
// through a "0" status field whose result is a plain string, so both shapes
// are handled here.
func (e *EtherscanClient) FetchSource(ctx context.Context, address string) (*ContractSource, error) {
	params := url.Values{}
	params.Add("module", "contract")
	params.Add("action", "getsourcecode")
	params.Add("address", address)
	params.Add("apikey", e.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status code %d): %s", resp.StatusCode, string(body))
	}

	var envelope etherscanResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if envelope.Status != "1" {
		var detail string
		_ = json.Unmarshal(envelope.Result, &detail)
		return nil, fmt.Errorf("etherscan error: %s %s", envelope.Message, detail)
	}

	var entries []etherscanSourceEntry
	if err := json.Unmarshal(envelope.Result, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse source entries: %w", err)
	}
	if len(entries) == 0 || entries[0].SourceCode == "" {
		return nil, fmt.Errorf("no verified source for address %s", address)
	}

	return &ContractSource{
		ContractName:    entries[0].ContractName,
		SourceCode:      entries[0].SourceCode,
		CompilerVersion: entries[0].CompilerVersion,
	}, nil
}
