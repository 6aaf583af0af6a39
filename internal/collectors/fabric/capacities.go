// Package fabric collects Microsoft Fabric capacity resources from the
// control plane.
package fabric

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/fabricmgr/fabricmgr/internal/collectors/topology"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
)

// capacityResourceType is the ARM resource type enumerated by this module.
const capacityResourceType = "Microsoft.Fabric/capacities"

// Subscription is one enumerable subscription scope.
type Subscription struct {
	ID          string
	DisplayName string
}

// Capacity is one Fabric capacity resource.
type Capacity struct {
	ID             string
	Name           string
	Location       string
	SKU            string
	State          string
	SubscriptionID string
}

func (c Capacity) record() tabular.Record {
	return tabular.Record{
		"id":              c.ID,
		"name":            c.Name,
		"location":        c.Location,
		"sku":             c.SKU,
		"state":           c.State,
		"subscription_id": c.SubscriptionID,
		"resource_group":  topology.DeriveResourceGroup(c.ID),
	}
}

// API is the narrow ARM surface this collector walks.
type API interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ListCapacities(ctx context.Context, subscriptionID string) ([]Capacity, error)
}

type armAPI struct {
	cred          azcore.TokenCredential
	subscriptions *armsubscriptions.Client
}

// NewARMAPI creates the SDK-backed API over one credential.
func NewARMAPI(cred azcore.TokenCredential) (API, error) {
	subscriptions, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}
	return &armAPI{cred: cred, subscriptions: subscriptions}, nil
}

func (a *armAPI) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	pager := a.subscriptions.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			out = append(out, Subscription{
				ID:          deref(sub.SubscriptionID),
				DisplayName: deref(sub.DisplayName),
			})
		}
	}
	return out, nil
}

func (a *armAPI) ListCapacities(ctx context.Context, subscriptionID string) ([]Capacity, error) {
	client, err := armresources.NewClient(subscriptionID, a.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resources client: %w", err)
	}
	opts := &armresources.ClientListOptions{
		Filter: to.Ptr(fmt.Sprintf("resourceType eq '%s'", capacityResourceType)),
	}
	var out []Capacity
	pager := client.NewListPager(opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list fabric capacities: %w", err)
		}
		for _, res := range page.Value {
			item := Capacity{
				ID:             deref(res.ID),
				Name:           deref(res.Name),
				Location:       deref(res.Location),
				State:          deref(res.ProvisioningState),
				SubscriptionID: subscriptionID,
			}
			if res.SKU != nil {
				item.SKU = deref(res.SKU.Name)
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
