package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog/log"
)

type walletSecret struct {
	Passphrase string `json:"passphrase"`
}

// WalletPassphrase fetches the keystore passphrase from AWS Secrets Manager.
// Secrets Manager occasionally throttles fresh credentials, so the lookup is
// retried a bounded number of times.
func WalletPassphrase(ctx context.Context, secretID string, region string) (string, error) {
	maxRetries := 10
	retryDelay := time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return "", fmt.Errorf("load aws config: %w", err)
		}

		svc := secretsmanager.NewFromConfig(cfg)
		out, err := svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("Failed to get wallet secret, retrying")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		var secret walletSecret
		if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &secret); err != nil {
			return "", fmt.Errorf("unmarshal wallet secret: %w", err)
		}
		if secret.Passphrase == "" {
			return "", fmt.Errorf("wallet secret %s has no passphrase field", secretID)
		}
		return secret.Passphrase, nil
	}
	return "", fmt.Errorf("get wallet secret after %d attempts: %w", maxRetries, lastErr)
}
