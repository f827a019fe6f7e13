package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core"
)

const sesSendTimeout = 10 * time.Second

type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesService struct {
	client          sesClient
	from            string
	subjPrefix      string
	frontendBaseURL string
	logger          core.Logger
}

var _ core.EmailService = (*sesService)(nil)

// NewSESService sends emails through Amazon SES, using the default AWS credential chain.
func NewSESService(ctx context.Context, conf *core.Config, logger core.Logger) (core.EmailService, error) {
	awsConf, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Email.SESRegion))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return newSESService(sesv2.NewFromConfig(awsConf), conf, logger), nil
}

func newSESService(client sesClient, conf *core.Config, logger core.Logger) *sesService {
	return &sesService{
		client:          client,
		from:            conf.DefaultFromEmail.String(),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		logger:          logger,
	}
}

func (svc sesService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.frontendBaseURL); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				ctx, cancel := context.WithTimeout(context.Background(), sesSendTimeout)
				defer cancel()
				_ = svc.send(ctx, *msg)
			}
		}()
	}
}

func (svc sesService) input(msg core.EmailMessage) *sesv2.SendEmailInput {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.TextContent), Charset: aws.String("UTF-8")}}
	if msg.HTMLContent != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String("UTF-8")}
	}
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(svc.from),
		Destination: &types.Destination{
			ToAddresses:  addressList(msg.To),
			CcAddresses:  addressList(msg.Cc),
			BccAddresses: addressList(msg.Bcc),
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(svc.subjPrefix + msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
}

func (svc sesService) send(ctx context.Context, msg core.EmailMessage) error {
	if _, err := svc.client.SendEmail(ctx, svc.input(msg)); err != nil {
		err = errors.Wrap(err, "sending email through SES")
		svc.logger.Error(err.Error(), err)
		return err
	}
	return nil
}

func addressList(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, a.String())
	}
	return list
}
