package app

import (
	"fmt"
	"strings"

	"toyoko_watch/internal/domain"
)

// FormatEvent renders one notification message. All channels receive the
// same text, so availability and failure events share a single formatter.
func FormatEvent(ev domain.Event) string {
	switch ev.Kind {
	case domain.EventAvailability:
		return formatAvailability(ev)
	case domain.EventResolutionFailure:
		return fmt.Sprintf("[ERROR] 東橫INN監控失敗\n區域: %s\n無法取得飯店清單: %v", ev.Target.Label(), ev.Err)
	case domain.EventQueryFailure:
		return fmt.Sprintf("[ERROR] 東橫INN監控失敗\n區域: %s\n所有飯店查詢皆失敗 (%d 間): %v",
			ev.Target.Label(), len(ev.Verdict.Failed), ev.Err)
	default:
		return fmt.Sprintf("[ERROR] 東橫INN監控: %v", ev.Err)
	}
}

func formatAvailability(ev domain.Event) string {
	v := ev.Verdict
	var b strings.Builder
	b.WriteString("東橫INN空房通知\n")
	fmt.Fprintf(&b, "區域     : %s\n", ev.Target.Label())
	fmt.Fprintf(&b, "入住     : %s\n", ev.Window.LocalCheckIn())
	fmt.Fprintf(&b, "退房     : %s\n", ev.Window.LocalCheckOut())
	fmt.Fprintf(&b, "人數/房間: %d / %d\n", ev.Occupancy.People, ev.Occupancy.Rooms)
	fmt.Fprintf(&b, "查詢飯店 : %d\n", v.Checked)
	if v.HasAvailability() {
		fmt.Fprintf(&b, "有空房   : %d 間", len(v.Available))
		for _, h := range v.Available {
			fmt.Fprintf(&b, "\n  • %s", h.Label())
		}
	} else {
		b.WriteString("結果     : 目前無空房")
	}
	if n := len(v.Failed); n > 0 {
		fmt.Fprintf(&b, "\n查詢失敗 : %d 間", n)
	}
	return b.String()
}
