// Package mcpserver holds the small stdio MCP servers: the current date and a
// WeatherAPI forecast.
package mcpserver

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KamdynS/agent-contrib/mcp"
	"github.com/KamdynS/agent-contrib/tools/weatherapi"
)

type noArgs struct{}

// Date serves get_current_date. now defaults to time.Now.
func Date(now func() time.Time) *sdkmcp.Server {
	if now == nil {
		now = time.Now
	}
	server := mcp.NewServer("date_server", "v1.0.0")
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_current_date", Description: "Get the current date"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, _ noArgs) (*sdkmcp.CallToolResult, any, error) {
			return mcp.TextResult("Here is the current date:" + now().Format("2006-01-02")), nil, nil
		})
	return server
}

// WeatherArgs is the get_weather input.
type WeatherArgs struct {
	Location string `json:"location" jsonschema:"City or place to forecast"`
	Days     int    `json:"days,omitempty" jsonschema:"Number of forecast days, 1 to 14"`
}

// Weather serves get_weather backed by c.
func Weather(c *weatherapi.Client) *sdkmcp.Server {
	server := mcp.NewServer("weather_server", "v1.0.0")
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_weather", Description: "Get the current weather and forecast for a location"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, in WeatherArgs) (*sdkmcp.CallToolResult, any, error) {
			f, err := c.Forecast(ctx, in.Location, in.Days)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil, nil
			}
			res, err := mcp.JSONResult(f)
			return res, nil, err
		})
	return server
}
