package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/rubiojr/msgsearch/pkg/dispatch"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/urfave/cli/v3"
)

// LambdaCommand creates the lambda command
func LambdaCommand() *cli.Command {
	return &cli.Command{
		Name:  "lambda",
		Usage: "Run as an AWS Lambda function handling HTTP and scheduled events",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runLambda(c.String("config"))
		},
	}
}

// runLambda loads the fallback dataset once per cold start and hands control
// to the Lambda runtime. It only returns on setup errors.
func runLambda(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	log.ForComponent("lambda").Infof("cold start with %d messages from %s", a.cache.Stats().Count, a.cache.Stats().Source)
	lambda.Start(lambdaHandler(a.dispatcher))
	return nil
}

type eventHandler interface {
	HandleEvent(ctx context.Context, raw []byte) (dispatch.Response, error)
}

func lambdaHandler(d eventHandler) func(context.Context, json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, raw json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := d.HandleEvent(ctx, raw)
		if err != nil {
			log.ForComponent("lambda").Errorf("handling event: %v", err)
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return toGatewayResponse(resp), nil
	}
}

func toGatewayResponse(resp dispatch.Response) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
}
