package sns

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-otp-api/internal/config"
)

// SMSSender delivers one-time passcodes over SMS via AWS SNS.
type SMSSender interface {
	SendCode(ctx context.Context, to, code string) error
}

type sender struct {
	client   *sns.Client
	validity time.Duration
}

func NewSender(cfg *config.Config) (SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg), validity: cfg.OTP.CacheTTL}, nil
}

func (s *sender) SendCode(ctx context.Context, to, code string) error {
	message := fmt.Sprintf("Your OTP verification code is: %s\n\nThis code expires in %d minutes.\n\nNever share this code with anyone.",
		code, int(s.validity.Minutes()))
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	return err
}
