package tool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthType selects how OpenAPI-generated tools authenticate requests.
type AuthType string

const (
	// AuthNone sends no credentials.
	AuthNone AuthType = ""
	// AuthAPIKey sends a static key in a configurable header.
	AuthAPIKey AuthType = "api_key"
	// AuthBearer sends a static bearer token.
	AuthBearer AuthType = "bearer"
	// AuthBasic sends HTTP basic credentials.
	AuthBasic AuthType = "basic"
	// AuthCustom sends arbitrary static headers.
	AuthCustom AuthType = "custom"
	// AuthDynamic obtains a bearer token from a refresh callback, cached in
	// the injected TokenCache until its TTL lapses.
	AuthDynamic AuthType = "dynamic"
)

// AuthConfig describes the credentials for one API.
type AuthConfig struct {
	Type     AuthType
	Header   string // header name for AuthAPIKey (default X-API-Key)
	Value    string // key or token for AuthAPIKey / AuthBearer
	Username string // AuthBasic
	Password string // AuthBasic
	Headers  map[string]string // AuthCustom

	// Refresh obtains a fresh token for AuthDynamic. The returned ttl bounds
	// the cache lifetime of the token.
	Refresh func(ctx context.Context) (token string, ttl time.Duration, err error)
}

// OpenAPISource generates HTTP-backed tools from an OpenAPI document. Each
// operation becomes one tool whose input schema is assembled from its
// parameters and request body schema.
type OpenAPISource struct {
	APIName    string
	Auth       AuthConfig
	TokenCache TokenCache
	Client     *http.Client

	doc openapiDoc
}

// NewOpenAPISource parses an OpenAPI document (JSON or YAML).
func NewOpenAPISource(apiName string, document []byte, optFns ...func(s *OpenAPISource)) (*OpenAPISource, error) {
	var doc openapiDoc
	if err := yaml.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if len(doc.Paths) == 0 {
		return nil, fmt.Errorf("openapi document %q declares no paths", apiName)
	}
	s := &OpenAPISource{
		APIName: apiName,
		Client:  http.DefaultClient,
		doc:     doc,
	}
	for _, fn := range optFns {
		fn(s)
	}
	if s.Auth.Type == AuthDynamic && s.TokenCache == nil {
		return nil, fmt.Errorf("openapi source %q: dynamic auth requires a token cache", apiName)
	}
	return s, nil
}

// openapiDoc is the subset of the OpenAPI shape the generator consumes.
type openapiDoc struct {
	Servers []struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"servers" json:"servers"`
	Paths map[string]map[string]openapiOperation `yaml:"paths" json:"paths"`
}

type openapiOperation struct {
	OperationID string `yaml:"operationId" json:"operationId"`
	Summary     string `yaml:"summary" json:"summary"`
	Description string `yaml:"description" json:"description"`
	Parameters  []struct {
		Name     string         `yaml:"name" json:"name"`
		In       string         `yaml:"in" json:"in"` // path, query
		Required bool           `yaml:"required" json:"required"`
		Schema   map[string]any `yaml:"schema" json:"schema"`
	} `yaml:"parameters" json:"parameters"`
	RequestBody struct {
		Content map[string]struct {
			Schema map[string]any `yaml:"schema" json:"schema"`
		} `yaml:"content" json:"content"`
	} `yaml:"requestBody" json:"requestBody"`
}

// Tools implements Source: one tool per documented operation.
func (s *OpenAPISource) Tools(_ context.Context) ([]Tool, error) {
	base := ""
	if len(s.doc.Servers) > 0 {
		base = strings.TrimRight(s.doc.Servers[0].URL, "/")
	}
	var tools []Tool
	for path, operations := range s.doc.Paths {
		for method, op := range operations {
			key := op.OperationID
			if key == "" {
				key = strings.ToLower(method) + strings.NewReplacer("/", "_", "{", "", "}", "").Replace(path)
			}
			description := op.Description
			if description == "" {
				description = op.Summary
			}
			tools = append(tools, &httpTool{
				source:      s,
				key:         key,
				description: description,
				method:      strings.ToUpper(method),
				urlTemplate: base + path,
				op:          op,
			})
		}
	}
	return tools, nil
}

// httpTool executes one OpenAPI operation over HTTP.
type httpTool struct {
	source      *OpenAPISource
	key         string
	description string
	method      string
	urlTemplate string
	op          openapiOperation
}

func (t *httpTool) Key() string         { return t.key }
func (t *httpTool) Name() string        { return t.key }
func (t *httpTool) Description() string { return t.description }

// InputSchema merges path/query parameters and the JSON request body schema
// into one object schema.
func (t *httpTool) InputSchema() map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range t.op.Parameters {
		schema := p.Schema
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		properties[p.Name] = schema
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if body, ok := t.op.RequestBody.Content["application/json"]; ok {
		if props, ok := body.Schema["properties"].(map[string]any); ok {
			for name, schema := range props {
				properties[name] = schema
			}
		}
		required = append(required, requiredProps(body.Schema)...)
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Execute substitutes path parameters, attaches query parameters, sends the
// remaining arguments as a JSON body for write methods and returns the
// decoded response.
func (t *httpTool) Execute(ctx context.Context, _ *Context, args map[string]any) (any, error) {
	endpoint := t.urlTemplate
	body := map[string]any{}
	query := url.Values{}

	consumed := map[string]bool{}
	for _, p := range t.op.Parameters {
		val, ok := args[p.Name]
		if !ok {
			continue
		}
		consumed[p.Name] = true
		switch p.In {
		case "path":
			endpoint = strings.ReplaceAll(endpoint, "{"+p.Name+"}", fmt.Sprintf("%v", val))
		case "query":
			query.Set(p.Name, fmt.Sprintf("%v", val))
		}
	}
	for name, val := range args {
		if !consumed[name] {
			body[name] = val
		}
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if len(body) > 0 && t.method != http.MethodGet {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, t.method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := t.source.applyAuth(ctx, req); err != nil {
		return nil, err
	}

	resp, err := t.source.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s %s: %w", t.method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s returned %d: %s", t.method, endpoint, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw), nil
	}
	return decoded, nil
}

// applyAuth resolves and attaches credentials per the source's auth config.
func (s *OpenAPISource) applyAuth(ctx context.Context, req *http.Request) error {
	switch s.Auth.Type {
	case AuthNone:
		return nil
	case AuthAPIKey:
		header := s.Auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, s.Auth.Value)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+s.Auth.Value)
	case AuthBasic:
		credentials := base64.StdEncoding.EncodeToString([]byte(s.Auth.Username + ":" + s.Auth.Password))
		req.Header.Set("Authorization", "Basic "+credentials)
	case AuthCustom:
		for name, value := range s.Auth.Headers {
			req.Header.Set(name, value)
		}
	case AuthDynamic:
		token, err := s.dynamicToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		return fmt.Errorf("unsupported auth type %q", s.Auth.Type)
	}
	return nil
}

// dynamicToken returns the cached token for the API or refreshes it.
func (s *OpenAPISource) dynamicToken(ctx context.Context) (string, error) {
	if token, ok := s.TokenCache.Get(s.APIName); ok {
		return token, nil
	}
	if s.Auth.Refresh == nil {
		return "", fmt.Errorf("dynamic auth for %q has no refresh callback", s.APIName)
	}
	token, ttl, err := s.Auth.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh token for %q: %w", s.APIName, err)
	}
	s.TokenCache.Set(s.APIName, token, ttl)
	return token, nil
}
