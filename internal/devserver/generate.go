package devserver

import (
	"fmt"
	"strings"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/recommend"
)

// activityCatalog maps an interest tag to canned activity names.
var activityCatalog = map[string][]string{
	"culture":   {"Old town walking tour", "Temple and shrine visit", "History museum"},
	"food":      {"Street food crawl", "Local cooking class", "Market breakfast"},
	"nature":    {"Botanical garden stroll", "Sunrise viewpoint hike", "Lake boat ride"},
	"adventure": {"White-water rafting", "Zip-line canopy tour", "Rock climbing session"},
	"beach":     {"Snorkelling trip", "Beach day", "Sunset catamaran"},
	"shopping":  {"Craft market", "Tea and spice shops", "Artisan workshops"},
}

var defaultActivities = []string{"City highlights tour", "Local café afternoon", "Evening night market"}

// activitiesPerDay is how many activities each generated day holds.
const activitiesPerDay = 2

// itinerary builds a deterministic plan from the request.
func itinerary(req api.ItineraryRequest) recommend.Plan {
	var pool []recommend.Activity
	for _, tag := range req.Interests {
		tag = strings.ToLower(strings.TrimSpace(tag))
		for _, name := range activityCatalog[tag] {
			pool = append(pool, recommend.Activity{Name: name, Category: tag})
		}
	}
	if len(pool) == 0 {
		for _, name := range defaultActivities {
			pool = append(pool, recommend.Activity{Name: name, Category: "general"})
		}
	}

	group := req.GroupSize
	if group < 1 {
		group = 1
	}
	perActivity := 0
	if req.Budget > 0 {
		perActivity = req.Budget / (req.Duration * activitiesPerDay)
	}

	plan := recommend.Plan{
		Destination: req.Destination,
		Summary:     fmt.Sprintf("%d-day trip to %s for %d", req.Duration, req.Destination, group),
	}
	next := 0
	for d := 1; d <= req.Duration; d++ {
		day := recommend.DayPlan{Day: d, Title: fmt.Sprintf("Day %d in %s", d, req.Destination)}
		for i := 0; i < activitiesPerDay; i++ {
			a := pool[next%len(pool)]
			next++
			a.Description = fmt.Sprintf("%s in %s", a.Name, req.Destination)
			a.EstimatedCost = perActivity
			day.Activities = append(day.Activities, a)
			plan.EstimatedTotal += perActivity
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

// packingList builds a deterministic packing list.
func packingList(req api.PackingRequest) api.PackingList {
	group := req.GroupSize
	if group < 1 {
		group = 1
	}
	items := []api.PackingItem{
		{Name: "Passport", Category: "documents", Quantity: group},
		{Name: "Phone charger", Category: "electronics", Quantity: 1},
		{Name: "T-shirts", Category: "clothing", Quantity: req.Duration * group},
		{Name: "Toiletry kit", Category: "toiletries", Quantity: group},
	}
	switch strings.ToLower(req.Season) {
	case "winter":
		items = append(items, api.PackingItem{Name: "Warm jacket", Category: "clothing", Quantity: group})
	case "monsoon", "rainy":
		items = append(items, api.PackingItem{Name: "Rain jacket", Category: "clothing", Quantity: group})
	default:
		items = append(items, api.PackingItem{Name: "Sunscreen", Category: "toiletries", Quantity: 1})
	}
	for _, act := range req.Activities {
		switch strings.ToLower(act) {
		case "hiking", "adventure":
			items = append(items, api.PackingItem{Name: "Hiking boots", Category: "gear", Quantity: group})
		case "beach", "swimming":
			items = append(items, api.PackingItem{Name: "Swimwear", Category: "clothing", Quantity: group})
		case "culture", "temples":
			items = append(items, api.PackingItem{Name: "Modest cover-up", Category: "clothing", Quantity: group})
		}
	}
	return api.PackingList{Items: items}
}

// chatReply produces a canned assistant answer.
func chatReply(question string, turns int) string {
	q := strings.TrimSpace(question)
	lower := strings.ToLower(q)
	switch {
	case strings.Contains(lower, "weather"):
		return "Check the season before you go: coastal areas are warm year-round, hill country is cooler in the evenings."
	case strings.Contains(lower, "budget") || strings.Contains(lower, "cost"):
		return "Plan for accommodation, transport, and roughly two paid activities per day; the planner can estimate totals for you."
	case turns > 1:
		return fmt.Sprintf("Following up on %q: try generating an itinerary with your interests so I can suggest specifics.", q)
	default:
		return fmt.Sprintf("Happy to help with %q. Tell me your destination, dates, and interests.", q)
	}
}
