// Package activity suggests things to do from the weather forecast and local
// events. The forecast comes from the weather MCP server.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
	"github.com/KamdynS/agent-contrib/tools/ticketmaster"
	"github.com/KamdynS/agent-contrib/tools/weatherapi"
)

// MaxActivities caps the suggestions in one reply.
const MaxActivities = 10

// FallbackReply is returned when the model produces no text.
const FallbackReply = "Sorry, I couldn't generate a response."

const systemPrompt = `You are a fun, helpful assistant for an Activity Suggestion App.
Recommend **up to %[1]d activities** based on real-time weather, balancing indoor, outdoor, and event-based options.

---

### **Core Rules**
- **Total limit**: %[1]d activities maximum (nb_events + nb_indoors + nb_outdoors <= %[1]d)
- **One response**: Provide all suggestions at once, no waiting
- **Smart balancing**: Adjust mix based on weather, event availability, and user needs
- **Default date**: If no date specified, assume today

---

### **Date Interpretation**
Reference date: **%[2]s (%[3]s)**
- "Tomorrow" = today + 1 day
- "Next Monday" = closest upcoming Monday
- "This weekend" = upcoming Saturday & Sunday
- Date ranges = calculate from today (e.g., "next 3 days" = today + 2)
- **Don't ask for confirmation**, interpret confidently

---

### **Process (All in One Go)**
1. **Get weather** for user's location and requested date
2. **Suggest activities** matching weather conditions
3. **Fetch events** (if available)
4. **Combine everything** into one structured response

---

### **Weather API**
- Calculate days offset for relative dates
- Show forecast only for requested date
- Limit: 14-day forecast (inform user if beyond range)
- If unavailable: notify in a friendly way

---

### **Events API**
- Use ISO Alpha-2 country codes (FR, US, CA, DK, etc.)
- **Date mapping**:
  - "Today" -> today's date
  - "Next Monday" -> next occurrence of that day
  - "Next 3 days" -> today as start date
- If >5 events found: ask for one-word interest (music, cinema, theater)
- If no events: inform user in a fun way
- **Never mention "Ticketmaster"**, just say "checking for events"

---

### **User Interaction**
- **No city provided?** -> Ask for it
- **Event search fails?** -> Say "no events found"
- **Provide everything in one response**

---

### **Event Formatting**
When events are available:

Here are some events that may interest you:

**Event Name**:
- 📅 Date: 19th March 2025
- 📍 Venue: [venue name]
- 🔗 [Ticket Link](URL)

---

### **Tone**
Be **short, fun, and accurate** with a dash of humor! Keep users smiling while delivering the best suggestions! 🎉
`

// SystemPrompt renders the instructions for the given day.
func SystemPrompt(today time.Time) string {
	return fmt.Sprintf(systemPrompt, MaxActivities, today.Format("2006-01-02"), today.Format("Monday"))
}

// ToolCaller calls a named tool on an MCP session.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Weather fetches a forecast as text.
type Weather interface {
	Weather(ctx context.Context, city string, days int) (string, error)
}

// MCPWeather asks the weather MCP server.
type MCPWeather struct {
	Session ToolCaller
}

func (w MCPWeather) Weather(ctx context.Context, city string, days int) (string, error) {
	return w.Session.CallTool(ctx, "get_weather", map[string]any{"location": city, "days": weatherapi.ClampDays(days)})
}

// WeatherArgs is the get_weather input.
type WeatherArgs struct {
	City string `json:"city" jsonschema:"description=The city for which the weather is being requested" validate:"required"`
	Days int    `json:"days,omitempty" jsonschema:"description=The number of days for the weather forecast (1-14 days),default=7" validate:"omitempty,min=1,max=14"`
}

// WeatherTool exposes w as get_weather. It answers {"weather": ...} or
// {"error": ...}.
func WeatherTool(w Weather) tools.Tool {
	return tools.NewFunc("get_weather", "Get the current weather and forecast for a city.",
		func(ctx context.Context, a WeatherArgs) (map[string]string, error) {
			log := obs.Component("activity")
			days := a.Days
			if days == 0 {
				days = weatherapi.DefaultDays
			}
			log.Info().Str("city", a.City).Int("days", days).Msg("fetching weather")
			text, err := w.Weather(ctx, a.City, days)
			if err != nil {
				log.Error().Err(err).Str("city", a.City).Msg("weather lookup failed")
				return map[string]string{"error": fmt.Sprintf("Could not fetch weather for %s: %v", a.City, err)}, nil
			}
			return map[string]string{"weather": text}, nil
		})
}

// Assistant answers activity questions.
type Assistant struct {
	Model  llm.Client
	Tools  tools.Registry
	Runner *core.Runner
	Logger *zerolog.Logger
	Now    func() time.Time
}

// New wires the weather and events tools.
func New(model llm.Client, weather Weather, events *ticketmaster.Client) *Assistant {
	return &Assistant{
		Model:  model,
		Tools:  tools.NewRegistry(WeatherTool(weather), ticketmaster.NewTool(events)),
		Runner: core.NewRunner(nil),
		Now:    time.Now,
	}
}

// Definition builds the agent with today's prompt.
func (a *Assistant) Definition() *core.Definition {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return &core.Definition{
		Name:         "Activity Assistant",
		Instructions: SystemPrompt(now()),
		Model:        a.Model,
		Tools:        a.Tools,
	}
}

// Chat answers message given the prior turns.
func (a *Assistant) Chat(ctx context.Context, history []llm.Message, message string) (string, error) {
	log := obs.LoggerOr(a.Logger, "activity")
	log.Info().Int("chars", len(message)).Msg("received message")

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	msgs = append(msgs, llm.UserMessage(message))

	res, err := a.Runner.RunMessages(ctx, a.Definition(), msgs)
	if err != nil {
		return "", err
	}
	reply := res.FinalOutput
	if reply == "" {
		reply = FallbackReply
	}
	log.Info().Int("chars", len(reply)).Msg("generated response")
	return reply, nil
}
