package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
)

// DefaultZoneKey names the bucket of items that have no zone. Those tickets
// go to the general kitchen.
const DefaultZoneKey = "default"

// DeltaItem is a positive quantity that still has to be cooked.
type DeltaItem struct {
	ProductID int64
	Name      string
	Quantity  int
	ZoneID    *int64
}

// ComputeDelta diffs the current cart against the previously sent one, per
// distinct product. Only increases are kept; a decrease or a removal never
// produces kitchen work. The result follows the order of the current cart.
func ComputeDelta(previous, current []tabledomain.CartLine) []DeltaItem {
	sent := make(map[int64]int, len(previous))
	for _, line := range previous {
		sent[line.ProductID] += line.Quantity
	}

	wanted := make(map[int64]int, len(current))
	order := make([]tabledomain.CartLine, 0, len(current))
	for _, line := range current {
		if _, seen := wanted[line.ProductID]; !seen {
			order = append(order, line)
		}
		wanted[line.ProductID] += line.Quantity
	}

	var delta []DeltaItem
	for _, line := range order {
		diff := wanted[line.ProductID] - sent[line.ProductID]
		if diff <= 0 {
			continue
		}
		delta = append(delta, DeltaItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  diff,
			ZoneID:    line.ZoneID,
		})
	}
	return delta
}

// ZoneGroup is the slice of a delta that belongs to one kitchen zone.
type ZoneGroup struct {
	Key    string
	ZoneID *int64
	Items  []Item
}

// ZoneKey renders the routing key of a zone.
func ZoneKey(zoneID *int64) string {
	if zoneID == nil {
		return DefaultZoneKey
	}
	return snowflake.ID(*zoneID).String()
}

// GroupByZone splits a delta into one group per non-empty zone. Items without
// a zone land in the default group. Groups are sorted by key.
func GroupByZone(delta []DeltaItem) []ZoneGroup {
	byKey := make(map[string]*ZoneGroup)
	for _, item := range delta {
		if item.Quantity <= 0 {
			continue
		}
		key := ZoneKey(item.ZoneID)
		group, ok := byKey[key]
		if !ok {
			group = &ZoneGroup{Key: key, ZoneID: item.ZoneID}
			byKey[key] = group
		}
		group.Items = append(group.Items, Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}

	groups := make([]ZoneGroup, 0, len(byKey))
	for _, group := range byKey {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// ZoneKeys returns the distinct zone keys of orders in first-seen order.
func ZoneKeys(orders []Order) []string {
	seen := make(map[string]struct{})
	var keys []string
	for i := range orders {
		key := ZoneKey(orders[i].ZoneID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
