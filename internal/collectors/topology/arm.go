package topology

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/managementgroups/armmanagementgroups"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// API is the narrow ARM surface the collector walks. The production
// implementation pages through SDK clients; tests substitute fakes.
type API interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ListManagementGroups(ctx context.Context) ([]ManagementGroup, error)
	ListResourceGroups(ctx context.Context, subscriptionID string) ([]ResourceGroup, error)
	ListResources(ctx context.Context, subscriptionID string) ([]Resource, error)
}

type armAPI struct {
	cred          azcore.TokenCredential
	subscriptions *armsubscriptions.Client
	groups        *armmanagementgroups.Client
}

// NewARMAPI creates the SDK-backed API over one credential.
func NewARMAPI(cred azcore.TokenCredential) (API, error) {
	subscriptions, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}
	groups, err := armmanagementgroups.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create management groups client: %w", err)
	}
	return &armAPI{cred: cred, subscriptions: subscriptions, groups: groups}, nil
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
			item := Subscription{
				ID:          deref(sub.SubscriptionID),
				DisplayName: deref(sub.DisplayName),
				TenantID:    deref(sub.TenantID),
			}
			if sub.State != nil {
				item.State = string(*sub.State)
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func (a *armAPI) ListManagementGroups(ctx context.Context) ([]ManagementGroup, error) {
	var out []ManagementGroup
	pager := a.groups.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list management groups: %w", err)
		}
		for _, group := range page.Value {
			item := ManagementGroup{
				ID:   deref(group.ID),
				Name: deref(group.Name),
				Type: deref(group.Type),
			}
			if group.Properties != nil {
				item.DisplayName = deref(group.Properties.DisplayName)
				item.TenantID = deref(group.Properties.TenantID)
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func (a *armAPI) ListResourceGroups(ctx context.Context, subscriptionID string) ([]ResourceGroup, error) {
	client, err := armresources.NewResourceGroupsClient(subscriptionID, a.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource groups client: %w", err)
	}
	var out []ResourceGroup
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resource groups: %w", err)
		}
		for _, rg := range page.Value {
			item := ResourceGroup{
				ID:             deref(rg.ID),
				Name:           deref(rg.Name),
				Location:       deref(rg.Location),
				SubscriptionID: subscriptionID,
			}
			if rg.Properties != nil {
				item.ProvisioningState = deref(rg.Properties.ProvisioningState)
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func (a *armAPI) ListResources(ctx context.Context, subscriptionID string) ([]Resource, error) {
	client, err := armresources.NewClient(subscriptionID, a.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resources client: %w", err)
	}
	var out []Resource
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resources: %w", err)
		}
		for _, res := range page.Value {
			out = append(out, Resource{
				ID:             deref(res.ID),
				Name:           deref(res.Name),
				Type:           deref(res.Type),
				Location:       deref(res.Location),
				Kind:           deref(res.Kind),
				SubscriptionID: subscriptionID,
				Tags:           derefTags(res.Tags),
			})
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

func derefTags(tags map[string]*string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = deref(v)
	}
	return out
}
