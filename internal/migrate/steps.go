package migrate

import (
	"fmt"

	"github.com/roach88/privacydb/internal/schema"
)

// Step1To2 introduces tabs and the selected-tab pointer.
var Step1To2 = Step{
	From: 1,
	To:   2,
	Name: "add_tabs",
	Structural: []StructuralOp{
		CreateTable{Table: schema.Table{
			Name: "tabs",
			Columns: []schema.Column{
				{Name: "tabId", Type: schema.TypeText, NotNull: true},
				{Name: "url", Type: schema.TypeText},
				{Name: "title", Type: schema.TypeText},
			},
			PrimaryKey: []string{"tabId"},
			Indices:    []schema.Index{{Name: "index_tabs_tabId", Columns: []string{"tabId"}}},
		}},
		CreateTable{Table: schema.Table{
			Name: "tab_selection",
			Columns: []schema.Column{
				{Name: "id", Type: schema.TypeInteger, NotNull: true},
				{Name: "tabId", Type: schema.TypeText},
			},
			PrimaryKey: []string{"id"},
			Indices:    []schema.Index{{Name: "index_tab_selection_tabId", Columns: []string{"tabId"}}},
		}},
	},
}

// Step2To3 re-keys the network leaderboard by (network, domain). Tallies
// recorded under the old key cannot be attributed under the new one, so they
// are discarded rather than reinterpreted. The rows go with the dropped table
// and are counted there; the purge records the policy and matches nothing.
var Step2To3 = Step{
	From: 2,
	To:   3,
	Name: "rekey_network_leaderboard",
	Structural: []StructuralOp{
		DropTable{Name: "network_leaderboard"},
		CreateTable{Table: schema.Table{
			Name: "network_leaderboard",
			Columns: []schema.Column{
				{Name: "networkName", Type: schema.TypeText, NotNull: true},
				{Name: "domainVisited", Type: schema.TypeText, NotNull: true},
			},
			PrimaryKey: []string{"networkName", "domainVisited"},
		}},
		CreateTable{Table: schema.Table{
			Name:       "sites_visited",
			Columns:    []schema.Column{{Name: "domain", Type: schema.TypeText, NotNull: true}},
			PrimaryKey: []string{"domain"},
		}},
	},
	Transforms: []DataTransform{
		Purge{Table: "network_leaderboard", Reason: "tallies keyed by domain only are invalid under the (network, domain) key"},
	},
}

// Step3To4 adds the user whitelist.
var Step3To4 = Step{
	From: 3,
	To:   4,
	Name: "add_user_whitelist",
	Structural: []StructuralOp{
		CreateTable{Table: schema.Table{
			Name:       "user_whitelist",
			Columns:    []schema.Column{{Name: "domain", Type: schema.TypeText, NotNull: true}},
			PrimaryKey: []string{"domain"},
		}},
	},
}

// Step4To5 gives tabs a position and a viewed flag. Existing tabs are ranked
// by their natural row order starting at 0 and count as already viewed.
var Step4To5 = Step{
	From: 4,
	To:   5,
	Name: "add_tab_position_and_viewed",
	Structural: []StructuralOp{
		AddColumn{Table: "tabs", Column: schema.Column{
			Name: "position", Type: schema.TypeInteger, NotNull: true, Default: schema.Literal("0"),
		}},
		AddColumn{Table: "tabs", Column: schema.Column{
			Name: "viewed", Type: schema.TypeBoolean, NotNull: true, Default: schema.Literal("1"),
		}},
	},
	Transforms: []DataTransform{
		RankBackfill{Table: "tabs", Column: "position"},
	},
}

// Step5To6 adds the app configuration record.
var Step5To6 = Step{
	From: 5,
	To:   6,
	Name: "add_app_configuration",
	Structural: []StructuralOp{
		CreateTable{Table: schema.Table{
			Name: "app_configuration",
			Columns: []schema.Column{
				{Name: "key", Type: schema.TypeText, NotNull: true},
				{Name: "appConfigurationDownloaded", Type: schema.TypeBoolean, NotNull: true},
			},
			PrimaryKey: []string{"key"},
		}},
	},
}

// Step6To7 adds shown notifications.
var Step6To7 = Step{
	From: 6,
	To:   7,
	Name: "add_notification",
	Structural: []StructuralOp{
		CreateTable{Table: schema.Table{
			Name:       "notification",
			Columns:    []schema.Column{{Name: "notificationId", Type: schema.TypeText, NotNull: true}},
			PrimaryKey: []string{"notificationId"},
		}},
	},
}

// Step7To8 adds the privacy protection counters.
var Step7To8 = Step{
	From: 7,
	To:   8,
	Name: "add_privacy_protection_count",
	Structural: []StructuralOp{
		CreateTable{Table: schema.Table{
			Name: "privacy_protection_count",
			Columns: []schema.Column{
				{Name: "key", Type: schema.TypeText, NotNull: true},
				{Name: "blocked_tracker_count", Type: schema.TypeInteger, NotNull: true, Default: schema.Literal("0")},
				{Name: "upgrade_count", Type: schema.TypeInteger, NotNull: true, Default: schema.Literal("0")},
			},
			PrimaryKey: []string{"key"},
		}},
	},
}

// AllSteps returns every shipped step in ascending order.
func AllSteps() []Step {
	return []Step{Step1To2, Step2To3, Step3To4, Step4To5, Step5To6, Step6To7, Step7To8}
}

// DefaultRegistry returns a registry holding every shipped step.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(AllSteps()...)
	if err != nil {
		panic(fmt.Sprintf("shipped migration steps are inconsistent: %v", err))
	}
	return r
}
