// Package agent wires the Eino ReAct agent to the read-only database tools
// to form the sale analyst: an admin-side assistant that inspects inventory
// and proposes, but never applies, discounts. Unlike the rule-based report
// in package sales, the analyst writes free-form Vietnamese text.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/sales"
)

// systemPrompt establishes the analyst persona, the business definitions it
// must apply, and the exact output shape.
const systemPrompt = `Bạn là Sale Analyst AI cho hệ thống bán hàng cầu lông (phía quản trị).

VAI TRÒ:
- Phân tích dữ liệu sản phẩm từ database (chỉ đọc)
- Đánh giá tồn kho và rủi ro kinh doanh
- Đề xuất sản phẩm CẦN XEM XÉT GIẢM GIÁ hoặc KHÔNG NÊN GIẢM GIÁ
- Hỗ trợ admin ra quyết định, KHÔNG tự áp dụng sale

QUY TẮC BẮT BUỘC:
1. Chỉ dùng câu lệnh SELECT qua tool sql_db_query
2. Tuyệt đối không UPDATE, INSERT, DELETE hay ALTER
3. Chỉ đề xuất, không tự áp dụng giảm giá
4. Tồn kho (inventory_qty) là yếu tố quyết định chính
5. Không phải mọi sản phẩm bán chậm đều phải giảm giá

ĐỊNH NGHĨA:

[SLOW-MOVING]
- inventory_qty >= HIGH_STOCK_THRESHOLD và ít bình luận trong WINDOW_DAYS ngày
- Đây là tín hiệu cảnh báo, không bắt buộc giảm giá

[ĐIỀU KIỆN ĐỀ XUẤT GIẢM GIÁ]
- Thuộc nhóm SLOW-MOVING, không gần hết hàng, không có rủi ro phá giá
- Chỉ đề xuất mức giảm 8%, mục tiêu kích cầu nhẹ chứ không xả kho

[NEAR-OUT-OF-STOCK]
- inventory_qty <= LOW_STOCK_THRESHOLD
- Tuyệt đối không đề xuất giảm giá, chỉ đánh dấu rủi ro thiếu hàng

[DISCOUNT CONTROL]
- Giảm giá hiện tại >= 10%: không đề xuất giảm thêm
- Giảm giá >= 30% và tồn kho thấp: cảnh báo admin

OUTPUT (BẮT BUỘC):
Sau khi phân tích xong, chỉ trả về các dòng theo mẫu:

<Tên sản phẩm>: giảm giá <X>%
NEAR-OUT-OF-STOCK: <Tên sản phẩm> - lí do
DISCOUNT CONTROL: lí do

Mỗi sản phẩm một dòng. Nếu không có sản phẩm nào đủ điều kiện giảm giá, trả về đúng một dòng:
KHÔNG CÓ SẢN PHẨM NÀO CẦN XEM XÉT GIẢM GIÁ

Ngôn ngữ: tiếng Việt, ngắn gọn, trung tính.`

// defaultMaxStep bounds the model/tool round trips per analysis.
const defaultMaxStep = 20

// Config holds the dependencies required to construct an Analyst.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Tools is the read-only database tool set, usually tools.All.
	Tools []tool.BaseTool

	// MaxStep caps the ReAct loop. Defaults to 20 if zero.
	MaxStep int
}

// Analyst wraps the Eino ReAct agent with the sale analysis persona.
type Analyst struct {
	reactAgent *react.Agent
}

// New constructs an Analyst from the provided Config.
func New(ctx context.Context, cfg *Config) (*Analyst, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("agent: at least one tool is required")
	}

	maxStep := cfg.MaxStep
	if maxStep <= 0 {
		maxStep = defaultMaxStep
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: cfg.Tools,
		},
		MaxStep: maxStep,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}
	return &Analyst{reactAgent: reactAgent}, nil
}

// Analyze runs one analysis for req and returns the analyst's report text.
func (a *Analyst) Analyze(ctx context.Context, req sales.Request) (string, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	msg, err := a.reactAgent.Generate(ctx, buildMessages(req))
	if err != nil {
		return "", fmt.Errorf("agent: analysis failed: %w", err)
	}

	report := strings.TrimSpace(msg.Content)
	log.Info("sale analysis completed",
		slog.Int("window_days", req.WindowDays),
		slog.Int("report_bytes", len(report)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func buildMessages(req sales.Request) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildTask(req)),
	}
}

// buildTask renders the admin's request as the analyst's instruction.
func buildTask(req sales.Request) string {
	return fmt.Sprintf(`Phân tích tình trạng sản phẩm trong %d ngày gần nhất.

HIGH_STOCK_THRESHOLD = %d
LOW_STOCK_THRESHOLD = %d

Hãy:
- Xác định sản phẩm SLOW-MOVING
- Xác định sản phẩm NEAR-OUT-OF-STOCK
- Phát hiện các trường hợp DISCOUNT nguy hiểm`,
		req.WindowDays, req.HighStockThreshold, req.LowStockThreshold)
}
