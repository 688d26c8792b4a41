// Package ghl exposes GoHighLevel CRM reads as tools: contacts,
// opportunities, pipelines, calendars, conversations and an aggregated
// location summary.
package ghl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harun/apigate/pkg/apiclient"
	"github.com/harun/apigate/pkg/toolerr"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the LeadConnector API host.
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	// DefaultAPIVersion is sent in the Version header of every request.
	DefaultAPIVersion = "2021-07-28"
)

// Config configures the GoHighLevel gateway.
type Config struct {
	APIKey     string
	LocationID string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Gateway holds the authenticated client and the location every request is
// scoped to.
type Gateway struct {
	client     *apiclient.Client
	locationID string
}

// New builds the gateway. The API key is sent as a bearer token.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	client, err := apiclient.New(apiclient.Config{
		API:        "GHL",
		BaseURL:    cfg.BaseURL,
		Auth:       apiclient.AuthBearer,
		Credential: cfg.APIKey,
		Headers:    map[string]string{"Version": cfg.APIVersion},
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	return &Gateway{client: client, locationID: cfg.LocationID}, nil
}

// Tools returns the gateway's tools in listing order.
func (g *Gateway) Tools() []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		g.getContactsTool(),
		g.getContactTool(),
		g.getOpportunitiesTool(),
		g.getPipelinesTool(),
		g.getAppointmentsTool(),
		g.getCalendarsTool(),
		g.getConversationsTool(),
		g.getLocationStatsTool(),
	}
}

func (g *Gateway) query(extra ...string) url.Values {
	q := url.Values{}
	q.Set("locationId", g.locationID)
	for i := 0; i+1 < len(extra); i += 2 {
		if extra[i+1] != "" {
			q.Set(extra[i], extra[i+1])
		}
	}
	return q
}

type contact struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   interface{} `json:"email"`
	Phone   interface{} `json:"phone"`
	Tags    interface{} `json:"tags"`
	Source  interface{} `json:"source"`
	Created interface{} `json:"created"`
}

// contactDetail is contact plus custom fields, as ghl_get_contact returns.
type contactDetail struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        interface{} `json:"email"`
	Phone        interface{} `json:"phone"`
	Tags         interface{} `json:"tags"`
	Source       interface{} `json:"source"`
	CustomFields interface{} `json:"customFields"`
	Created      interface{} `json:"created"`
}

type opportunity struct {
	ID      string      `json:"id"`
	Name    interface{} `json:"name"`
	Value   string      `json:"value"`
	Status  interface{} `json:"status"`
	Stage   interface{} `json:"stage"`
	Contact interface{} `json:"contact"`
	Created interface{} `json:"created"`
}

type stage struct {
	ID       string      `json:"id"`
	Name     interface{} `json:"name"`
	Position interface{} `json:"position"`
}

type pipeline struct {
	ID     string      `json:"id"`
	Name   interface{} `json:"name"`
	Stages []stage     `json:"stages"`
}

type appointment struct {
	ID       string      `json:"id"`
	Title    interface{} `json:"title"`
	Status   interface{} `json:"status"`
	Start    interface{} `json:"start"`
	End      interface{} `json:"end"`
	Contact  interface{} `json:"contact"`
	Calendar interface{} `json:"calendar"`
}

type calendar struct {
	ID          string      `json:"id"`
	Name        interface{} `json:"name"`
	Description interface{} `json:"description"`
	IsActive    interface{} `json:"isActive"`
}

type conversation struct {
	ID              string      `json:"id"`
	ContactID       interface{} `json:"contactId"`
	Type            interface{} `json:"type"`
	LastMessage     interface{} `json:"lastMessage"`
	LastMessageDate interface{} `json:"lastMessageDate"`
	Unread          interface{} `json:"unread"`
}

func fullName(r gjson.Result) string {
	return strings.TrimSpace(r.Get("firstName").String() + " " + r.Get("lastName").String())
}

// Upstream fields are copied as-is: a missing or null field renders as null,
// so every record carries the same keys.
func toContact(r gjson.Result) contact {
	return contact{
		ID:      r.Get("id").String(),
		Name:    fullName(r),
		Email:   r.Get("email").Value(),
		Phone:   r.Get("phone").Value(),
		Tags:    r.Get("tags").Value(),
		Source:  r.Get("source").Value(),
		Created: r.Get("dateAdded").Value(),
	}
}

func toContactDetail(r gjson.Result) contactDetail {
	c := toContact(r)
	return contactDetail{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Tags:         c.Tags,
		Source:       c.Source,
		CustomFields: r.Get("customField").Value(),
		Created:      c.Created,
	}
}

// monetaryValue renders a deal value; missing or zero values are "N/A".
func monetaryValue(r gjson.Result) string {
	v := r.Float()
	if v == 0 {
		return "N/A"
	}
	return "$" + strconv.FormatFloat(v, 'f', -1, 64)
}

func toOpportunity(r gjson.Result) opportunity {
	return opportunity{
		ID:      r.Get("id").String(),
		Name:    r.Get("name").Value(),
		Value:   monetaryValue(r.Get("monetaryValue")),
		Status:  r.Get("status").Value(),
		Stage:   r.Get("pipelineStageId").Value(),
		Contact: r.Get("contactId").Value(),
		Created: r.Get("createdAt").Value(),
	}
}

func toAppointment(r gjson.Result) appointment {
	return appointment{
		ID:       r.Get("id").String(),
		Title:    r.Get("title").Value(),
		Status:   r.Get("appointmentStatus").Value(),
		Start:    r.Get("startTime").Value(),
		End:      r.Get("endTime").Value(),
		Contact:  r.Get("contactId").Value(),
		Calendar: r.Get("calendarId").Value(),
	}
}

func mapArray[T any](items []gjson.Result, f func(gjson.Result) T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, f(item))
	}
	return out
}

func limitArg(args toolexecutor.Args) string {
	return strconv.Itoa(args.Int("limit"))
}

func (g *Gateway) getContactsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_contacts",
		Description: "Get contacts from GoHighLevel with optional filters",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "limit", Type: "number", Description: "Number of contacts to return", Default: 20},
			{Name: "query", Type: "string", Description: "Search query (name, email, phone)"},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/contacts/", g.query("limit", limitArg(args), "query", args.String("query")))
			if err != nil {
				return nil, err
			}
			contacts := mapArray(resp.Array("contacts"), toContact)
			return struct {
				Count    int       `json:"count"`
				Contacts []contact `json:"contacts"`
			}{len(contacts), contacts}, nil
		}),
	}
}

func (g *Gateway) getContactTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_contact",
		Description: "Get a specific contact by ID",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "contact_id", Type: "string", Description: "The contact ID", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/contacts/"+url.PathEscape(args.String("contact_id")), nil)
			if err != nil {
				return nil, err
			}
			body := resp.Get("contact")
			if !body.IsObject() {
				return nil, toolerr.New(toolerr.KindUpstream, fmt.Sprintf("GHL API Error: contact %s missing from response", args.String("contact_id")))
			}
			return struct {
				Contact contactDetail `json:"contact"`
			}{toContactDetail(body)}, nil
		}),
	}
}

func (g *Gateway) getOpportunitiesTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_opportunities",
		Description: "Get opportunities/deals from a pipeline",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "pipeline_id", Type: "string", Description: "Pipeline ID to filter by"},
			{Name: "status", Type: "string", Description: "Filter by status", Enum: []interface{}{"open", "won", "lost", "all"}, Default: "all"},
			{Name: "limit", Type: "number", Description: "Number of opportunities to return", Default: 20},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			status := args.String("status")
			if status == "all" {
				status = ""
			}
			q := g.query("limit", limitArg(args), "pipelineId", args.String("pipeline_id"), "status", status)
			resp, err := g.client.Get(ctx, "/opportunities/search", q)
			if err != nil {
				return nil, err
			}
			opps := mapArray(resp.Array("opportunities"), toOpportunity)
			return struct {
				Count         int           `json:"count"`
				Opportunities []opportunity `json:"opportunities"`
			}{len(opps), opps}, nil
		}),
	}
}

func (g *Gateway) getPipelinesTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_pipelines",
		Description: "Get all pipelines in the location",
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/opportunities/pipelines", g.query())
			if err != nil {
				return nil, err
			}
			pipelines := mapArray(resp.Array("pipelines"), func(p gjson.Result) pipeline {
				return pipeline{
					ID:   p.Get("id").String(),
					Name: p.Get("name").Value(),
					Stages: mapArray(p.Get("stages").Array(), func(s gjson.Result) stage {
						return stage{ID: s.Get("id").String(), Name: s.Get("name").Value(), Position: s.Get("position").Value()}
					}),
				}
			})
			return struct {
				Pipelines []pipeline `json:"pipelines"`
			}{pipelines}, nil
		}),
	}
}

func (g *Gateway) getAppointmentsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_appointments",
		Description: "Get calendar appointments",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "calendar_id", Type: "string", Description: "Calendar ID to filter by"},
			{Name: "start_date", Type: "string", Description: "Start date (YYYY-MM-DD)", Required: true},
			{Name: "end_date", Type: "string", Description: "End date (YYYY-MM-DD)", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/calendars/events", g.eventsQuery(args.String("start_date"), args.String("end_date"), args.String("calendar_id")))
			if err != nil {
				return nil, err
			}
			appointments := mapArray(resp.Array("events"), toAppointment)
			return struct {
				Count        int           `json:"count"`
				Appointments []appointment `json:"appointments"`
			}{len(appointments), appointments}, nil
		}),
	}
}

func (g *Gateway) eventsQuery(start, end, calendarID string) url.Values {
	return g.query("startTime", start, "endTime", end, "calendarId", calendarID)
}

func (g *Gateway) getCalendarsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_calendars",
		Description: "Get all calendars in the location",
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/calendars/", g.query())
			if err != nil {
				return nil, err
			}
			calendars := mapArray(resp.Array("calendars"), func(c gjson.Result) calendar {
				return calendar{
					ID:          c.Get("id").String(),
					Name:        c.Get("name").Value(),
					Description: c.Get("description").Value(),
					IsActive:    c.Get("isActive").Value(),
				}
			})
			return struct {
				Calendars []calendar `json:"calendars"`
			}{calendars}, nil
		}),
	}
}

func (g *Gateway) getConversationsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_conversations",
		Description: "Get recent conversations/messages",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "contact_id", Type: "string", Description: "Filter by contact ID"},
			{Name: "limit", Type: "number", Description: "Number of conversations to return", Default: 20},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/conversations/search", g.query("limit", limitArg(args), "contactId", args.String("contact_id")))
			if err != nil {
				return nil, err
			}
			conversations := mapArray(resp.Array("conversations"), func(c gjson.Result) conversation {
				return conversation{
					ID:              c.Get("id").String(),
					ContactID:       c.Get("contactId").Value(),
					Type:            c.Get("type").Value(),
					LastMessage:     c.Get("lastMessageBody").Value(),
					LastMessageDate: c.Get("lastMessageDate").Value(),
					Unread:          c.Get("unreadCount").Value(),
				}
			})
			return struct {
				Count         int            `json:"count"`
				Conversations []conversation `json:"conversations"`
			}{len(conversations), conversations}, nil
		}),
	}
}
