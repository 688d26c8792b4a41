// Package sheets exposes Google Sheets v4 operations as tools. Credentials
// come from an OAuth client file and a token file written by an external
// consent flow; both are read once when the gateway is built.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/harun/apigate/internal/observability"
	"github.com/harun/apigate/pkg/apiclient"
	"github.com/harun/apigate/pkg/toolerr"
	"github.com/harun/apigate/pkg/toolexecutor"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const api = "Sheets"

// Scopes requested by the consent flow that produced the token file.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
}

// Config configures the Sheets gateway.
type Config struct {
	CredentialsPath string
	TokenPath       string
	// Endpoint overrides the Sheets API root URL.
	Endpoint string
	Timeout  time.Duration
}

// Gateway wraps an authenticated Sheets service.
type Gateway struct {
	svc *gsheets.Service
}

type clientFile struct {
	Installed *struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
}

func configErr(format string, args ...interface{}) error {
	return toolerr.New(toolerr.KindConfig, fmt.Sprintf(format, args...))
}

// LoadOAuthConfig reads the installed-app client file.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr("Credentials file not found at %s", path)
	}

	var file clientFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, configErr("Credentials file %s is not valid JSON: %v", path, err)
	}
	if file.Installed == nil || file.Installed.ClientID == "" || file.Installed.ClientSecret == "" {
		return nil, configErr("Credentials file %s has no installed.client_id/client_secret", path)
	}

	return &oauth2.Config{
		ClientID:     file.Installed.ClientID,
		ClientSecret: file.Installed.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}, nil
}

// LoadToken reads a persisted OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr("Token file not found at %s", path)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, configErr("Token file %s is not valid JSON: %v", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, configErr("Token file %s holds neither an access nor a refresh token", path)
	}
	return &tok, nil
}

// New reads the credential files and builds the gateway. The token source
// refreshes expired access tokens with the stored refresh token.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	oauthCfg, err := LoadOAuthConfig(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, tok))
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, configErr("Failed to create Sheets client: %v", err)
	}
	return NewWithService(svc), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheets.Service) *Gateway {
	return &Gateway{svc: svc}
}

// Tools returns the gateway's tools in listing order.
func (g *Gateway) Tools() []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		g.createTool(),
		g.readTool(),
		g.writeTool(),
		g.appendTool(),
		g.clearTool(),
		g.getInfoTool(),
		g.pushMetaDataTool(),
	}
}

// call runs one Sheets request, recording it like any other upstream call
// and mapping failures onto the apiclient error types.
func call[T any](method string, do func() (T, error)) (T, error) {
	startTime := time.Now()
	out, err := do()

	status := http.StatusOK
	if err != nil {
		status = 0
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			status = gerr.Code
		}
	}
	observability.RecordUpstreamRequest(api, method, status, time.Since(startTime))

	return out, mapError(method, err)
}

func mapError(method string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Message
		if body == "" {
			body = gerr.Body
		}
		return &apiclient.APIError{API: api, Status: gerr.Code, Body: body}
	}
	return &apiclient.NetworkError{API: api, Method: method, Err: err}
}

var spreadsheetIDParam = toolexecutor.ToolParameter{Name: "spreadsheetId", Type: "string", Description: "The ID of the spreadsheet", Required: true}

func (g *Gateway) createTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_create",
		Description: "Create a new Google Spreadsheet",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "title", Type: "string", Description: "Title of the spreadsheet", Required: true},
			{Name: "sheets", Type: "array", Items: "string", Description: "Names of sheets to create", Default: []interface{}{"Sheet1"}},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			req := &gsheets.Spreadsheet{Properties: &gsheets.SpreadsheetProperties{Title: args.String("title")}}
			for _, name := range args.Strings("sheets") {
				req.Sheets = append(req.Sheets, &gsheets.Sheet{Properties: &gsheets.SheetProperties{Title: name}})
			}

			resp, err := call(http.MethodPost, func() (*gsheets.Spreadsheet, error) {
				return g.svc.Spreadsheets.Create(req).Context(ctx).Do()
			})
			if err != nil {
				return nil, err
			}

			title := ""
			if resp.Properties != nil {
				title = resp.Properties.Title
			}
			return struct {
				SpreadsheetID  string `json:"spreadsheetId"`
				SpreadsheetURL string `json:"spreadsheetUrl"`
				Title          string `json:"title"`
			}{resp.SpreadsheetId, resp.SpreadsheetUrl, title}, nil
		}),
	}
}

func (g *Gateway) readTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_read",
		Description: "Read data from a Google Spreadsheet",
		Parameters: []toolexecutor.ToolParameter{
			spreadsheetIDParam,
			{Name: "range", Type: "string", Description: "The A1 notation range to read (e.g., Sheet1!A1:Z100)", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := call(http.MethodGet, func() (*gsheets.ValueRange, error) {
				return g.svc.Spreadsheets.Values.Get(args.String("spreadsheetId"), args.String("range")).Context(ctx).Do()
			})
			if err != nil {
				return nil, err
			}

			values := resp.Values
			if values == nil {
				values = [][]interface{}{}
			}
			return struct {
				Range  string          `json:"range"`
				Values [][]interface{} `json:"values"`
			}{resp.Range, values}, nil
		}),
	}
}

func valuesParams(verb string) []toolexecutor.ToolParameter {
	return []toolexecutor.ToolParameter{
		spreadsheetIDParam,
		{Name: "range", Type: "string", Description: "The A1 notation range to " + verb, Required: true},
		{Name: "values", Type: "array", Items: "array", Description: "2D array of values to " + verb, Required: true},
	}
}

func (g *Gateway) writeTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_write",
		Description: "Write data to a Google Spreadsheet",
		Mutating:    true,
		Parameters:  valuesParams("write (e.g., Sheet1!A1)"),
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			body := &gsheets.ValueRange{Values: args.Rows("values")}
			resp, err := call(http.MethodPut, func() (*gsheets.UpdateValuesResponse, error) {
				return g.svc.Spreadsheets.Values.Update(args.String("spreadsheetId"), args.String("range"), body).
					ValueInputOption("USER_ENTERED").Context(ctx).Do()
			})
			if err != nil {
				return nil, err
			}

			return struct {
				UpdatedRange   string `json:"updatedRange"`
				UpdatedRows    int64  `json:"updatedRows"`
				UpdatedColumns int64  `json:"updatedColumns"`
				UpdatedCells   int64  `json:"updatedCells"`
			}{resp.UpdatedRange, resp.UpdatedRows, resp.UpdatedColumns, resp.UpdatedCells}, nil
		}),
	}
}

// appendRows appends rows below the table found in rng.
func (g *Gateway) appendRows(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) (*gsheets.UpdateValuesResponse, error) {
	resp, err := call(http.MethodPost, func() (*gsheets.AppendValuesResponse, error) {
		return g.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
			ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	if resp.Updates == nil {
		return &gsheets.UpdateValuesResponse{}, nil
	}
	return resp.Updates, nil
}

func (g *Gateway) appendTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_append",
		Description: "Append data to a Google Spreadsheet",
		Mutating:    true,
		Parameters:  valuesParams("append to (e.g., Sheet1!A:Z)"),
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			updates, err := g.appendRows(ctx, args.String("spreadsheetId"), args.String("range"), args.Rows("values"))
			if err != nil {
				return nil, err
			}
			return struct {
				UpdatedRange string `json:"updatedRange"`
				UpdatedRows  int64  `json:"updatedRows"`
			}{updates.UpdatedRange, updates.UpdatedRows}, nil
		}),
	}
}

func (g *Gateway) clearTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_clear",
		Description: "Clear data from a range in a Google Spreadsheet",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			spreadsheetIDParam,
			{Name: "range", Type: "string", Description: "The A1 notation range to clear", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			rng := args.String("range")
			_, err := call(http.MethodPost, func() (*gsheets.ClearValuesResponse, error) {
				return g.svc.Spreadsheets.Values.Clear(args.String("spreadsheetId"), rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
			})
			if err != nil {
				return nil, err
			}
			return struct {
				Message string `json:"message"`
			}{"Cleared range: " + rng}, nil
		}),
	}
}

type sheetInfo struct {
	Title       string `json:"title"`
	SheetID     int64  `json:"sheetId"`
	RowCount    int64  `json:"rowCount"`
	ColumnCount int64  `json:"columnCount"`
}

func (g *Gateway) getInfoTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_get_info",
		Description: "Get information about a Google Spreadsheet",
		Parameters:  []toolexecutor.ToolParameter{spreadsheetIDParam},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := call(http.MethodGet, func() (*gsheets.Spreadsheet, error) {
				return g.svc.Spreadsheets.Get(args.String("spreadsheetId")).Context(ctx).Do()
			})
			if err != nil {
				return nil, err
			}

			var title, locale string
			if resp.Properties != nil {
				title, locale = resp.Properties.Title, resp.Properties.Locale
			}

			infos := make([]sheetInfo, 0, len(resp.Sheets))
			for _, s := range resp.Sheets {
				if s.Properties == nil {
					continue
				}
				info := sheetInfo{Title: s.Properties.Title, SheetID: s.Properties.SheetId}
				if grid := s.Properties.GridProperties; grid != nil {
					info.RowCount, info.ColumnCount = grid.RowCount, grid.ColumnCount
				}
				infos = append(infos, info)
			}

			return struct {
				Title          string      `json:"title"`
				Locale         string      `json:"locale"`
				Sheets         []sheetInfo `json:"sheets"`
				SpreadsheetURL string      `json:"spreadsheetUrl"`
			}{title, locale, infos, resp.SpreadsheetUrl}, nil
		}),
	}
}
