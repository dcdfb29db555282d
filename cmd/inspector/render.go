package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mcbn/tradepost/internal/eventfeed"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

type snapshot struct {
	Shops    []model.Shop
	Auctions []*model.Auction
	Claims   []model.ClaimEntry
	Orders   []*model.PurchaseOrder
	Keepers  []*model.ShopKeeper
}

func loadSnapshot(ctx context.Context, store service.Store) (*snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if snap.Shops, err = store.LoadShops(ctx); err != nil {
		return nil, fmt.Errorf("load shops: %w", err)
	}
	if snap.Auctions, err = store.LoadAuctions(ctx); err != nil {
		return nil, fmt.Errorf("load auctions: %w", err)
	}
	if snap.Claims, err = store.LoadClaims(ctx); err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	if snap.Orders, err = store.LoadOrders(ctx); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if snap.Keepers, err = store.LoadKeepers(ctx); err != nil {
		return nil, fmt.Errorf("load keepers: %w", err)
	}

	sort.Slice(snap.Shops, func(i, j int) bool { return snap.Shops[i].Key() < snap.Shops[j].Key() })
	sort.Slice(snap.Auctions, func(i, j int) bool { return snap.Auctions[i].EndsAt().Before(snap.Auctions[j].EndsAt()) })
	sort.Slice(snap.Claims, func(i, j int) bool { return snap.Claims[i].Owner < snap.Claims[j].Owner })
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].Owner < snap.Orders[j].Owner })
	sort.Slice(snap.Keepers, func(i, j int) bool { return snap.Keepers[i].ID < snap.Keepers[j].ID })
	return &snap, nil
}

func renderSnapshot(s *snapshot) string {
	var b strings.Builder

	section(&b, "Shops", len(s.Shops), []string{"Position", "Owner", "Item", "Bundle", "Price"}, func(add func(...string)) {
		for _, shop := range s.Shops {
			add(shop.Key(), shop.Owner, shop.Template.Type, strconv.Itoa(shop.BundleSize), fmt.Sprintf("%d %s", shop.Price, shop.Currency))
		}
	})

	lots := 0
	for _, a := range s.Auctions {
		lots += len(a.Lots)
	}
	section(&b, "Auctions", lots, []string{"Auction", "Owner", "Lot", "Item", "Bid", "Bidder", "Ends"}, func(add func(...string)) {
		for _, a := range s.Auctions {
			for _, l := range a.Lots {
				bid := strconv.Itoa(l.StartingBid) + " (start)"
				if l.HasBids() {
					bid = strconv.Itoa(l.HighestBid)
				}
				add(a.ID, a.Owner, l.ID, l.Item.String(), bid+" "+a.Currency, l.HighestBidder, a.EndsAt().Format(time.RFC3339))
			}
		}
	})

	section(&b, "Pending claims", len(s.Claims), []string{"Owner", "Item stacks", "Currency"}, func(add func(...string)) {
		for _, c := range s.Claims {
			add(c.Owner, strconv.Itoa(len(c.Items)), formatAmounts(c.Currency))
		}
	})

	section(&b, "Purchase orders", len(s.Orders), []string{"Owner", "Order", "Fee"}, func(add func(...string)) {
		for _, o := range s.Orders {
			add(o.Owner, service.RenderText(o), strconv.Itoa(o.FeePercent)+"%")
		}
	})

	section(&b, "Shopkeepers", len(s.Keepers), []string{"Keeper", "Owner", "Home", "Linked shops"}, func(add func(...string)) {
		for _, k := range s.Keepers {
			add(k.ID, k.Owner, k.Home.String(), strconv.Itoa(len(k.Linked)))
		}
	})
	return b.String()
}

func section(b *strings.Builder, title string, count int, headers []string, fill func(add func(...string))) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", title, count)))
	b.WriteString("\n")
	if count == 0 {
		b.WriteString(emptyStyle.Render("  none"))
		b.WriteString("\n")
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fill(func(cells ...string) { t.Row(cells...) })
	b.WriteString(t.String())
	b.WriteString("\n")
}

func formatAmounts(amounts map[string]int) string {
	keys := make([]string, 0, len(amounts))
	for k, n := range amounts {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", amounts[k], k))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func renderEvent(ev eventfeed.Event) string {
	line := ev.At.Local().Format("15:04:05") + " " + kindStyle.Render(string(ev.Kind))
	if ev.Actor != "" {
		line += " by " + ev.Actor
	}
	if len(ev.Payload) > 0 {
		line += " " + string(ev.Payload)
	}
	return line
}
