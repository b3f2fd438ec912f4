/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Message is a JSON object ready to publish.
type Message map[string]any

// Types lists every message type the generator knows, in a stable order.
var Types = []string{
	"user_profile",
	"chat_message",
	"transaction",
	"system_event",
	"product",
	"sensor_reading",
	"social_post",
	"notification",
	"analytics_event",
	"support_ticket",
	"order",
	"log_entry",
}

var ErrUnknownType = errors.New("unknown message type")

func ValidType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Size is the length of the message's compact JSON encoding.
func Size(m Message) int {
	b, err := json.Marshal(m)
	if err != nil {
		return 0
	}
	return len(b)
}

// Message builds a message of kind, or of a random kind when kind is empty.
// Meta adds three type specific annotations under "meta". A positive
// targetSize pads or trims the message toward that many bytes.
func (g *Generator) Message(kind string, meta bool, targetSize int) (Message, error) {
	if kind == "" {
		kind = g.pick(Types...)
	}

	build, ok := g.builders()[kind]
	if !ok {
		return nil, errors.Wrap(ErrUnknownType, kind)
	}

	m := build()
	if meta {
		m["meta"] = g.Meta(kind)
	}
	if targetSize > 0 {
		g.adjustSize(m, targetSize)
	}

	return m, nil
}

// Meta returns the annotations for a message type.
func (g *Generator) Meta(kind string) map[string]any {
	switch kind {
	case "user_profile":
		return map[string]any{
			"source":            "user_registration_system",
			"validation_status": g.pick("verified", "pending", "unverified"),
			"data_completeness": fmt.Sprintf("%d%%", g.between(60, 100)),
		}
	case "chat_message":
		return map[string]any{
			"moderation_status": g.pick("approved", "pending", "flagged"),
			"sentiment_score":   g.round(-1, 1, 2),
			"language_detected": g.pick("en", "es", "fr", "de", "pt"),
		}
	case "transaction":
		return map[string]any{
			"risk_level":        g.pick("low", "medium", "high"),
			"fraud_score":       g.round(0, 100, 1),
			"processing_region": g.pick("us-east", "us-west", "eu-central", "ap-southeast"),
		}
	case "system_event":
		return map[string]any{
			"alert_severity":   g.pick("info", "warning", "error", "critical"),
			"auto_resolve":     g.fake.Bool(),
			"escalation_level": g.between(0, 3),
		}
	case "product":
		return map[string]any{
			"inventory_status":   g.pick("in_stock", "low_stock", "out_of_stock"),
			"promotion_eligible": g.fake.Bool(),
			"popularity_rank":    g.between(1, 1000),
		}
	case "sensor_reading":
		return map[string]any{
			"data_quality":     g.pick("excellent", "good", "fair", "poor"),
			"anomaly_detected": g.fake.Bool(),
			"calibration_due":  g.fake.Bool(),
		}
	case "social_post":
		return map[string]any{
			"virality_score":     g.round(0, 10, 1),
			"content_safety":     g.pick("safe", "sensitive", "inappropriate"),
			"trending_potential": g.pick("low", "medium", "high"),
		}
	case "notification":
		return map[string]any{
			"delivery_priority":     g.pick("low", "normal", "high", "urgent"),
			"personalization_level": g.pick("generic", "targeted", "personalized"),
			"a_b_test_variant":      g.pick("A", "B", "C", "control"),
		}
	case "analytics_event":
		return map[string]any{
			"data_freshness":    g.pick("real_time", "near_real_time", "batch"),
			"attribution_model": g.pick("first_click", "last_click", "multi_touch"),
			"conversion_value":  g.round(0, 500, 2),
		}
	case "support_ticket":
		return map[string]any{
			"escalation_risk":                 g.pick("low", "medium", "high"),
			"customer_satisfaction_predicted": g.round(1, 5, 1),
			"resolution_complexity":           g.pick("simple", "moderate", "complex"),
		}
	case "order":
		return map[string]any{
			"fulfillment_priority": g.pick("standard", "expedited", "priority"),
			"shipping_risk":        g.pick("low", "medium", "high"),
			"customer_tier":        g.pick("bronze", "silver", "gold", "platinum"),
		}
	case "log_entry":
		levels := []int{10, 20, 30, 40, 50}
		return map[string]any{
			"log_level_numeric":  levels[g.between(0, len(levels)-1)],
			"trace_sampling":     g.fake.Bool(),
			"performance_impact": g.pick("none", "low", "medium", "high"),
		}
	}
	return nil
}

// Leave room for the key and quoting of the padding field itself.
const paddingOverhead = 50

// Trimmed fields never shrink below this many characters.
const minTrimmedLength = 100

func (g *Generator) adjustSize(m Message, target int) {
	current := Size(m)

	if current < target {
		if needed := target - current - paddingOverhead; needed > 0 {
			m["padding_content"] = g.text(needed)
		}
		return
	}

	if current > target {
		for _, field := range []string{"description", "content"} {
			s, ok := m[field].(string)
			if !ok {
				continue
			}
			r := []rune(s)
			if len(r) <= minTrimmedLength {
				continue
			}
			keep := len(r)
			for removed := 0; keep > minTrimmedLength && removed < current-target; keep-- {
				removed += utf8.RuneLen(r[keep-1])
			}
			m[field] = string(r[:keep])
			return
		}
	}
}

func (g *Generator) builders() map[string]func() Message {
	return map[string]func() Message{
		"user_profile":    g.userProfile,
		"chat_message":    g.chatMessage,
		"transaction":     g.transaction,
		"system_event":    g.systemEvent,
		"product":         g.product,
		"sensor_reading":  g.sensorReading,
		"social_post":     g.socialPost,
		"notification":    g.notification,
		"analytics_event": g.analyticsEvent,
		"support_ticket":  g.supportTicket,
		"order":           g.order,
		"log_entry":       g.logEntry,
	}
}

func (g *Generator) userProfile() Message {
	f := g.fake
	return Message{
		"type":      "user_profile",
		"user_id":   f.UUID(),
		"username":  f.Username(),
		"email":     f.Email(),
		"full_name": f.Name(),
		"bio":       g.text(200),
		"location": map[string]any{
			"city":        f.City(),
			"country":     f.Country(),
			"coordinates": g.coordinates(),
		},
		"preferences": map[string]any{
			"theme":         g.pick("light", "dark", "auto"),
			"language":      f.LanguageAbbreviation(),
			"notifications": f.Bool(),
			"privacy_level": g.pick("public", "friends", "private"),
		},
		"created_at":  g.isoSince(2 * year),
		"last_active": g.isoSince(30 * day),
	}
}

func (g *Generator) chatMessage() Message {
	f := g.fake

	mentions := []string{}
	for i := g.between(0, 3); i > 0; i-- {
		mentions = append(mentions, f.Username())
	}

	attachments := []any{}
	if f.Bool() {
		attachments = append(attachments, map[string]any{
			"type":     "image",
			"url":      f.URL(),
			"filename": f.Word() + ".jpg",
		})
	}

	return Message{
		"type":        "chat_message",
		"message_id":  f.UUID(),
		"user_id":     f.UUID(),
		"username":    f.Username(),
		"content":     g.text(g.between(10, 500)),
		"channel":     "#" + f.Word(),
		"timestamp":   g.now().Format(time.RFC3339),
		"thread_id":   g.maybe(f.UUID()),
		"mentions":    mentions,
		"attachments": attachments,
		"reactions": map[string]any{
			"👍":  g.between(0, 20),
			"❤️": g.between(0, 15),
			"😂":  g.between(0, 10),
		},
	}
}

func (g *Generator) transaction() Message {
	f := g.fake
	card := f.CreditCardNumber(nil)
	return Message{
		"type":           "transaction",
		"transaction_id": f.UUID(),
		"user_id":        f.UUID(),
		"amount":         g.round(1, 10000, 2),
		"currency":       f.CurrencyShort(),
		"merchant": map[string]any{
			"name":     f.Company(),
			"category": g.pick("restaurant", "retail", "gas", "grocery", "entertainment"),
			"location": f.Address().Address,
		},
		"payment_method": map[string]any{
			"type":      g.pick("credit_card", "debit_card", "paypal", "apple_pay"),
			"last_four": card[len(card)-4:],
		},
		"status":      g.pick("pending", "completed", "failed", "refunded"),
		"timestamp":   g.isoSince(30 * day),
		"description": f.Sentence(g.between(6, 14)),
		"metadata": map[string]any{
			"ip_address": f.IPv4Address(),
			"user_agent": f.UserAgent(),
			"risk_score": g.round(0, 100, 2),
		},
	}
}

func (g *Generator) systemEvent() Message {
	f := g.fake
	return Message{
		"type":       "system_event",
		"event_id":   f.UUID(),
		"event_type": g.pick("login", "logout", "error", "warning", "info"),
		"service":    g.pick("auth-service", "api-gateway", "user-service", "payment-service"),
		"severity":   g.pick("low", "medium", "high", "critical"),
		"message":    f.Sentence(g.between(6, 14)),
		"details": map[string]any{
			"user_id":       f.UUID(),
			"session_id":    f.UUID(),
			"ip_address":    f.IPv4Address(),
			"user_agent":    f.UserAgent(),
			"endpoint":      "/api/v1/" + f.Word(),
			"response_time": g.between(10, 5000),
			"status_code":   []int{200, 201, 400, 401, 403, 404, 500, 502}[g.between(0, 7)],
		},
		"timestamp": g.now().Format(time.RFC3339),
		"server": map[string]any{
			"hostname":    f.DomainName(),
			"region":      g.pick("us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1"),
			"instance_id": "i-" + strings.TrimPrefix(f.HexColor(), "#"),
		},
	}
}

func (g *Generator) product() Message {
	f := g.fake
	discount := 0.0
	if f.Bool() {
		discount = g.round(0, 50, 2)
	}
	return Message{
		"type":        "product",
		"product_id":  f.UUID(),
		"sku":         f.Numerify("#############"),
		"name":        f.Color() + " " + title(f.Noun()),
		"description": g.text(300),
		"category":    g.pick("electronics", "clothing", "home", "sports", "books"),
		"price": map[string]any{
			"amount":   g.round(9.99, 999.99, 2),
			"currency": "USD",
			"discount": discount,
		},
		"inventory": map[string]any{
			"quantity":     g.between(0, 1000),
			"warehouse":    f.City(),
			"last_updated": g.isoSince(7 * day),
		},
		"attributes": map[string]any{
			"brand":      f.Company(),
			"color":      f.Color(),
			"size":       g.pick("XS", "S", "M", "L", "XL", "XXL"),
			"weight":     fmt.Sprintf("%.2f lbs", g.round(0.1, 50, 2)),
			"dimensions": fmt.Sprintf("%dx%dx%d cm", g.between(1, 50), g.between(1, 50), g.between(1, 50)),
		},
		"ratings": map[string]any{
			"average": g.round(1, 5, 1),
			"count":   g.between(0, 1000),
		},
		"created_at": g.isoSince(year),
	}
}

func (g *Generator) sensorReading() Message {
	f := g.fake
	return Message{
		"type":        "sensor_reading",
		"device_id":   f.UUID(),
		"sensor_type": g.pick("temperature", "humidity", "pressure", "motion", "light"),
		"location": map[string]any{
			"building":    f.Numerify("###"),
			"floor":       g.between(1, 20),
			"room":        fmt.Sprintf("Room %d", g.between(100, 999)),
			"coordinates": g.coordinates(),
		},
		"reading": map[string]any{
			"value":      g.round(-40, 120, 2),
			"unit":       g.pick("°C", "°F", "%", "Pa", "lux", "boolean"),
			"calibrated": f.Bool(),
		},
		"quality": map[string]any{
			"signal_strength":  g.between(-100, -30),
			"battery_level":    g.between(0, 100),
			"last_calibration": g.isoSince(90 * day),
		},
		"timestamp": g.now().Format(time.RFC3339),
		"metadata": map[string]any{
			"firmware_version": fmt.Sprintf("v%d.%d.%d", g.between(1, 5), g.between(0, 99), g.between(0, 99)),
			"manufacturer":     f.Company(),
			"model":            fmt.Sprintf("%s-%d", strings.ToUpper(f.Word()), g.between(1000, 9999)),
		},
	}
}

func (g *Generator) socialPost() Message {
	f := g.fake

	hashtags := []string{}
	for i := g.between(0, 5); i > 0; i-- {
		hashtags = append(hashtags, "#"+f.Word())
	}
	mentions := []string{}
	for i := g.between(0, 3); i > 0; i-- {
		mentions = append(mentions, "@"+f.Username())
	}
	media := []any{}
	if f.Bool() {
		media = append(media, map[string]any{
			"type":      g.pick("image", "video", "gif"),
			"url":       f.URL(),
			"thumbnail": f.URL(),
		})
	}

	return Message{
		"type":     "social_post",
		"post_id":  f.UUID(),
		"user_id":  f.UUID(),
		"username": f.Username(),
		"content":  g.text(g.between(20, 280)),
		"hashtags": hashtags,
		"mentions": mentions,
		"media":    media,
		"engagement": map[string]any{
			"likes":    g.between(0, 10000),
			"shares":   g.between(0, 1000),
			"comments": g.between(0, 500),
			"views":    g.between(0, 100000),
		},
		"location": g.maybe(map[string]any{
			"name":        f.City(),
			"coordinates": g.coordinates(),
		}),
		"timestamp": g.isoSince(7 * day),
		"platform":  g.pick("twitter", "instagram", "facebook", "linkedin"),
	}
}

func (g *Generator) notification() Message {
	f := g.fake

	channels := []string{"push", "email", "sms", "in_app"}
	f.ShuffleStrings(channels)

	return Message{
		"type":            "notification",
		"notification_id": f.UUID(),
		"user_id":         f.UUID(),
		"title":           f.Sentence(4),
		"body":            g.text(150),
		"category":        g.pick("system", "social", "promotional", "reminder", "alert"),
		"priority":        g.pick("low", "normal", "high", "urgent"),
		"channels":        channels[:g.between(1, 3)],
		"action_url":      g.maybe(f.URL()),
		"metadata": map[string]any{
			"campaign_id":   f.UUID(),
			"source":        g.pick("automated", "manual", "triggered"),
			"experiment_id": g.maybe(f.UUID()),
		},
		"scheduled_for": g.isoUntil(7 * day),
		"created_at":    g.now().Format(time.RFC3339),
	}
}

func (g *Generator) analyticsEvent() Message {
	f := g.fake
	return Message{
		"type":       "analytics_event",
		"event_id":   f.UUID(),
		"session_id": f.UUID(),
		"user_id":    f.UUID(),
		"event_name": g.pick("page_view", "click", "purchase", "signup", "download"),
		"properties": map[string]any{
			"page_url":     f.URL(),
			"referrer":     f.URL(),
			"utm_source":   g.pick("google", "facebook", "twitter", "direct"),
			"utm_medium":   g.pick("cpc", "social", "email", "organic"),
			"utm_campaign": fmt.Sprintf("campaign_%d", g.between(1, 100)),
			"browser":      g.pick("Chrome", "Firefox", "Safari", "Edge"),
			"os":           g.pick("Windows", "macOS", "Linux", "iOS", "Android"),
			"device_type":  g.pick("desktop", "mobile", "tablet"),
		},
		"user_properties": map[string]any{
			"country":      f.CountryAbr(),
			"city":         f.City(),
			"timezone":     f.TimeZoneRegion(),
			"language":     f.LanguageAbbreviation(),
			"is_returning": f.Bool(),
		},
		"timestamp": g.now().Format(time.RFC3339),
		"client_info": map[string]any{
			"ip_address": f.IPv4Address(),
			"user_agent": f.UserAgent(),
			"screen_resolution": fmt.Sprintf("%sx%s",
				g.pick("1920", "1366", "1536", "2560"),
				g.pick("1080", "768", "864", "1440")),
		},
	}
}

func (g *Generator) supportTicket() Message {
	f := g.fake

	tags := []string{}
	for i := g.between(0, 4); i > 0; i-- {
		tags = append(tags, f.Word())
	}

	return Message{
		"type":      "support_ticket",
		"ticket_id": fmt.Sprintf("TICKET-%d", g.between(10000, 99999)),
		"user_id":   f.UUID(),
		"customer": map[string]any{
			"name":  f.Name(),
			"email": f.Email(),
			"phone": f.Phone(),
			"tier":  g.pick("free", "premium", "enterprise"),
		},
		"subject":     f.Sentence(6),
		"description": g.text(500),
		"category":    g.pick("technical", "billing", "feature_request", "bug_report", "general"),
		"priority":    g.pick("low", "medium", "high", "critical"),
		"status":      g.pick("open", "in_progress", "waiting_customer", "resolved", "closed"),
		"assigned_to": map[string]any{
			"agent_id":   f.UUID(),
			"name":       f.Name(),
			"department": g.pick("support", "technical", "billing"),
		},
		"tags":       tags,
		"created_at": g.isoSince(30 * day),
		"updated_at": g.isoSince(7 * day),
		"sla": map[string]any{
			"response_time":   fmt.Sprintf("%d hours", g.between(1, 24)),
			"resolution_time": fmt.Sprintf("%d days", g.between(1, 7)),
		},
	}
}

func (g *Generator) order() Message {
	f := g.fake

	items := []any{}
	subtotal := 0.0
	for i := g.between(1, 5); i > 0; i-- {
		quantity := g.between(1, 3)
		price := g.round(9.99, 199.99, 2)
		subtotal += price * float64(quantity)
		items = append(items, map[string]any{
			"product_id": f.UUID(),
			"name":       f.Color() + " " + title(f.Noun()),
			"quantity":   quantity,
			"price":      price,
			"sku":        f.Numerify("########"),
		})
	}

	tax := subtotal * 0.08
	shipping := g.round(0, 29.99, 2)
	discount := 0.0
	if f.Bool() {
		discount = g.round(0, 50, 2)
	}

	return Message{
		"type":     "order",
		"order_id": fmt.Sprintf("ORD-%d", g.between(100000, 999999)),
		"user_id":  f.UUID(),
		"customer": map[string]any{
			"name":  f.Name(),
			"email": f.Email(),
			"phone": f.Phone(),
		},
		"items": items,
		"pricing": map[string]any{
			"subtotal": cents(subtotal),
			"tax":      cents(tax),
			"shipping": shipping,
			"discount": discount,
			"total":    cents(subtotal + tax + shipping),
		},
		"shipping_address": map[string]any{
			"street":  f.Street(),
			"city":    f.City(),
			"state":   f.StateAbr(),
			"zip":     f.Zip(),
			"country": f.CountryAbr(),
		},
		"payment": map[string]any{
			"method": g.pick("credit_card", "paypal", "apple_pay", "google_pay"),
			"status": g.pick("pending", "authorized", "captured", "failed"),
		},
		"status":             g.pick("processing", "shipped", "delivered", "cancelled"),
		"tracking_number":    g.maybe(f.Numerify("#############")),
		"created_at":         g.isoSince(30 * day),
		"estimated_delivery": g.isoUntil(14 * day),
	}
}

func (g *Generator) logEntry() Message {
	f := g.fake

	var performance any
	if f.Bool() {
		performance = map[string]any{
			"duration_ms": g.between(1, 5000),
			"memory_mb":   g.between(50, 2048),
			"cpu_percent": g.round(0, 100, 1),
		}
	}

	return Message{
		"type":      "log_entry",
		"timestamp": g.now().Format(time.RFC3339),
		"level":     g.pick("DEBUG", "INFO", "WARN", "ERROR", "FATAL"),
		"logger":    f.Word() + "." + f.Word(),
		"message":   f.Sentence(g.between(6, 14)),
		"thread":    fmt.Sprintf("thread-%d", g.between(1, 20)),
		"context": map[string]any{
			"request_id":     f.UUID(),
			"user_id":        f.UUID(),
			"session_id":     f.UUID(),
			"correlation_id": f.UUID(),
		},
		"source": map[string]any{
			"file":   f.Word() + ".go",
			"line":   g.between(1, 1000),
			"method": f.Word() + "_" + f.Word(),
		},
		"environment": g.pick("development", "staging", "production"),
		"host": map[string]any{
			"hostname": f.DomainName(),
			"ip":       f.IPv4Address(),
			"region":   g.pick("us-east-1", "us-west-2", "eu-west-1"),
		},
		"performance": performance,
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
