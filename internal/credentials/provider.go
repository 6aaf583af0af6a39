// Package credentials acquires Azure tokens for both the ARM control plane
// and the Power BI admin API. A chained credential (CLI, developer CLI,
// environment/managed identity) is tried first; Power BI token requests
// that the chain cannot satisfy fall back to a device code flow.
package credentials

import (
	"context"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
)

// PowerBIScope is the delegated scope for the Power BI admin API.
const PowerBIScope = "https://analysis.windows.net/powerbi/api/.default"

// ARMScope is the control-plane scope used for auth checks.
const ARMScope = "https://management.azure.com/.default"

// Provider builds credentials lazily and hands out bearer tokens.
type Provider struct {
	log      logger.Logger
	tenantID string
	clientID string

	mu     sync.Mutex
	chain  azcore.TokenCredential
	device azcore.TokenCredential
}

// NewProvider creates a provider. tenantID and clientID are only needed for
// the device code fallback; empty values use the azidentity defaults.
func NewProvider(log logger.Logger, tenantID, clientID string) *Provider {
	return &Provider{log: log, tenantID: tenantID, clientID: clientID}
}

// ARMCredential returns the chained credential used by ARM SDK clients.
func (p *Provider) ARMCredential() (azcore.TokenCredential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainLocked()
}

func (p *Provider) chainLocked() (azcore.TokenCredential, error) {
	if p.chain != nil {
		return p.chain, nil
	}

	var sources []azcore.TokenCredential
	if cli, err := azidentity.NewAzureCLICredential(nil); err == nil {
		sources = append(sources, cli)
	}
	if azd, err := azidentity.NewAzureDeveloperCLICredential(nil); err == nil {
		sources = append(sources, azd)
	}
	def, err := azidentity.NewDefaultAzureCredential(nil)
	if err == nil {
		sources = append(sources, def)
	}
	if len(sources) == 0 {
		return nil, apperrors.WrapAuth(err, "no usable azure credential source")
	}

	chain, err := azidentity.NewChainedTokenCredential(sources, nil)
	if err != nil {
		return nil, apperrors.WrapAuth(err, "building credential chain")
	}
	p.chain = chain
	return p.chain, nil
}

func (p *Provider) deviceLocked() (azcore.TokenCredential, error) {
	if p.device != nil {
		return p.device, nil
	}
	opts := &azidentity.DeviceCodeCredentialOptions{
		TenantID: p.tenantID,
		ClientID: p.clientID,
	}
	device, err := azidentity.NewDeviceCodeCredential(opts)
	if err != nil {
		return nil, apperrors.WrapAuth(err, "building device code credential")
	}
	p.device = device
	return p.device, nil
}

// Token returns a bearer token for the given scopes. The chained credential
// is tried first; on failure the device code flow is attempted once and the
// resulting credential is cached for the rest of the run.
func (p *Provider) Token(ctx context.Context, scopes []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := policy.TokenRequestOptions{Scopes: scopes}

	chain, chainErr := p.chainLocked()
	if chainErr == nil {
		token, err := chain.GetToken(ctx, opts)
		if err == nil {
			return token.Token, nil
		}
		chainErr = err
		p.log.Warn("direct token exchange failed, falling back to device code flow",
			logger.Strings("scopes", scopes),
			logger.Err(err))
	}

	device, err := p.deviceLocked()
	if err != nil {
		return "", err
	}
	token, err := device.GetToken(ctx, opts)
	if err != nil {
		return "", apperrors.WrapAuth(err, "token acquisition failed on all paths").
			WithDetail("chain_error", chainErr.Error())
	}
	return token.Token, nil
}
