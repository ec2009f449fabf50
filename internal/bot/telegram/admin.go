package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"petprint-bot/internal/storage"
)

var statusLabels = map[string]string{
	storage.StatusPaymentReported: "入金報告済み",
	storage.StatusPaid:            "入金確認済み",
	storage.StatusInProduction:    "制作中",
	storage.StatusShipped:         "発送済み",
	storage.StatusCancelled:       "キャンセル",
}

// handleAdminCommand reports whether command was an admin command.
func (a *Adapter) handleAdminCommand(ctx context.Context, chatID int64, command, args string) bool {
	switch command {
	case "stats":
		a.handleOrderStats(ctx, chatID)
	case "export":
		a.handleExportOrders(ctx, chatID)
	case "status":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			a.sendText(chatID, "使い方: /status <注文ID> <"+strings.Join(storage.Statuses, "|")+">")
			return true
		}
		a.handleStatusUpdate(ctx, chatID, fields[0], fields[1])
	default:
		return false
	}
	return true
}

func (a *Adapter) handleOrderStats(ctx context.Context, chatID int64) {
	stats, err := a.orders.GetOrderStatistics(ctx)
	if err != nil {
		a.logger.Error("Failed to get order statistics", zap.Error(err))
		a.sendText(chatID, "統計の取得に失敗しました。")
		return
	}
	a.sendText(chatID, formatStats(stats))
}

func formatStats(stats *storage.OrderStatistics) string {
	var b strings.Builder
	b.WriteString("📊 注文統計\n\n")
	fmt.Fprintf(&b, "全期間: %d件 / ¥%d\n", stats.TotalOrders, stats.TotalRevenue)
	fmt.Fprintf(&b, "本日: %d件 / ¥%d\n", stats.TodayOrders, stats.TodayRevenue)
	fmt.Fprintf(&b, "7日間: %d件 / ¥%d\n", stats.WeekOrders, stats.WeekRevenue)
	fmt.Fprintf(&b, "30日間: %d件 / ¥%d\n", stats.MonthOrders, stats.MonthRevenue)
	b.WriteString("\nステータス別:\n")
	for _, s := range storage.Statuses {
		fmt.Fprintf(&b, "%s: %d\n", statusLabels[s], stats.StatusCounts[s])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Adapter) handleExportOrders(ctx context.Context, chatID int64) {
	path, err := a.orders.ExportAllOrdersToExcel(ctx, a.reportsDir)
	if err != nil {
		a.logger.Error("Failed to export all orders", zap.Error(err))
		a.sendText(chatID, "注文のエクスポートに失敗しました。")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "📊 注文一覧"
	if _, err := a.api.Send(doc); err != nil {
		a.logger.Error("Failed to send Excel file", zap.String("path", path), zap.Error(err))
		a.sendText(chatID, "ファイルの送信に失敗しました。")
	}
}

func (a *Adapter) handleStatusUpdate(ctx context.Context, chatID int64, orderIDStr, status string) {
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil {
		a.sendText(chatID, "注文IDの形式が正しくありません。")
		return
	}
	if !storage.ValidStatus(status) {
		a.sendText(chatID, "ステータスは次のいずれかです: "+strings.Join(storage.Statuses, ", "))
		return
	}

	if err := a.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			a.sendText(chatID, fmt.Sprintf("注文 #%d が見つかりません。", orderID))
			return
		}
		a.logger.Error("Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.String("status", status),
			zap.Error(err))
		a.sendText(chatID, "ステータスの更新に失敗しました。")
		return
	}

	a.sendText(chatID, fmt.Sprintf("✅ 注文 #%d のステータスを「%s」に変更しました。", orderID, statusLabels[status]))

	order, err := a.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		a.logger.Warn("Failed to load order for customer notice", zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	userChat, err := strconv.ParseInt(order.UserID, 10, 64)
	if err != nil {
		return
	}
	a.sendText(userChat, fmt.Sprintf("ご注文（#%d）のステータスが「%s」になりました。", orderID, statusLabels[status]))
}
