// Package classifier maps free-form questions onto the fixed service
// taxonomy using one generation call with a strict JSON output contract.
package classifier

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/pkg/logger"
)

// Labels is the closed taxonomy. Classification never produces a label
// outside this list.
var Labels = []string{
	"restaurant",
	"accommodation",
	"delivery",
	"transportation",
	"tourism",
	"order",
	"general",
}

const LabelGeneral = "general"

type Classification struct {
	PrimaryLabel string
	Confidence   float64
	Distribution map[string]float64
}

type Generator interface {
	CompleteLight(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Classifier struct {
	generator Generator
}

func New(generator Generator) *Classifier {
	return &Classifier{generator: generator}
}

const systemPrompt = `Bạn là nhân viên phân loại câu hỏi của người dùng. Xác định câu hỏi thuộc danh mục dịch vụ nào:

1. restaurant - đồ ăn, ăn uống, nhà hàng, thực đơn, món ăn, ẩm thực
2. accommodation - khách sạn, phòng ở, lưu trú, tiện nghi
3. delivery - dịch vụ giao hàng, vận chuyển hàng hóa, theo dõi giao hàng
4. transportation - di chuyển, đi lại, tài xế, phương tiện
5. tourism - điểm tham quan, thắng cảnh, tour du lịch
6. order - lịch sử đặt hàng, đơn hàng đã đặt, dịch vụ đã sử dụng
7. general - câu hỏi chung không thuộc các danh mục trên

Trả lời của bạn phải là một đối tượng JSON với cấu trúc sau, không kèm văn bản nào khác:
{
    "primary_context": "[một trong: restaurant, accommodation, delivery, transportation, tourism, order, general]",
    "confidence": [số từ 0 đến 1],
    "all_contexts": {
        "restaurant": [0-1], "accommodation": [0-1], "delivery": [0-1],
        "transportation": [0-1], "tourism": [0-1], "order": [0-1], "general": [0-1]
    }
}

Tổng của tất cả điểm số nên xấp xỉ bằng 1.0.`

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// Classify never fails: malformed model output resolves to the "general"
// label with full confidence, which callers treat as a valid result.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	raw, err := c.generator.CompleteLight(ctx, systemPrompt, text)
	if err != nil {
		logger.Warn("Context classification call failed", zap.Error(err))
		return failClosed()
	}

	result, ok := parse(raw)
	if !ok {
		logger.Warn("Context classification output unparseable",
			zap.String("output", truncate(raw, 200)),
		)
		return failClosed()
	}

	logger.Debug("Context classified",
		zap.String("label", result.PrimaryLabel),
		zap.Float64("confidence", result.Confidence),
	)

	return result
}

func parse(raw string) (Classification, bool) {
	var payload struct {
		PrimaryContext string             `json:"primary_context"`
		Confidence     float64            `json:"confidence"`
		AllContexts    map[string]float64 `json:"all_contexts"`
	}

	candidate := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		match := fencedJSON.FindStringSubmatch(candidate)
		if match == nil {
			return Classification{}, false
		}
		if err := json.Unmarshal([]byte(match[1]), &payload); err != nil {
			return Classification{}, false
		}
	}

	if !validLabel(payload.PrimaryContext) {
		return Classification{}, false
	}

	distribution := make(map[string]float64, len(Labels))
	for _, label := range Labels {
		score := payload.AllContexts[label]
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		distribution[label] = score
	}

	confidence := payload.Confidence
	if maxScore := maxValue(distribution); maxScore > 0 {
		confidence = maxScore
	}

	return Classification{
		PrimaryLabel: payload.PrimaryContext,
		Confidence:   confidence,
		Distribution: distribution,
	}, true
}

func failClosed() Classification {
	distribution := make(map[string]float64, len(Labels))
	for _, label := range Labels {
		distribution[label] = 0
	}
	distribution[LabelGeneral] = 1.0

	return Classification{
		PrimaryLabel: LabelGeneral,
		Confidence:   1.0,
		Distribution: distribution,
	}
}

func validLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

func maxValue(m map[string]float64) float64 {
	var max float64
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
