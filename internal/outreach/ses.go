package outreach

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/lead-engine/internal/pkg/logger"
)

// SESChannel delivers email outreach through AWS SES. The recipient id is
// the lead's email address.
type SESChannel struct {
	client    *sesv2.Client
	fromName  string
	fromEmail string
	log       *logger.Logger
}

// SESConfig holds SES channel credentials and sender identity.
type SESConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	FromName  string
	FromEmail string
}

// NewSESChannel initializes the SES client. Region defaults to us-east-1.
func NewSESChannel(cfg SESConfig) (*SESChannel, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("ses: from email is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load AWS config: %w", err)
	}

	return &SESChannel{
		client:    sesv2.NewFromConfig(awsCfg),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		log:       logger.New("ses"),
	}, nil
}

func (s *SESChannel) Name() string { return "email" }

// Send delivers one email. Provider errors are wrapped as transient: SES
// rejects bad addresses before accepting the send, so what remains is
// almost always connectivity or throttling.
func (s *SESChannel) Send(ctx context.Context, recipientID string, msg Message) (Result, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{recipientID}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	for k, v := range msg.Metadata {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.log.Error("send failed", "recipient", recipientID, "error", err)
		return Result{Channel: s.Name()}, Transient(err)
	}

	res := Result{Channel: s.Name()}
	if out.MessageId != nil {
		res.ProviderID = *out.MessageId
	}
	return res, nil
}
