package orch

import (
	"context"

	"github.com/dkeye/tempvoice/internal/domain"
)

func (o *Orchestrator) GetOrCreateConfig(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error) {
	return o.Configs.GetOrCreate(ctx, guild)
}

func (o *Orchestrator) UpdateConfig(ctx context.Context, guild domain.GuildID, u domain.ConfigUpdate) (*domain.TenantVoiceConfig, error) {
	return o.Configs.Update(ctx, guild, u)
}
