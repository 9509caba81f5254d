package api

import (
	"context"
	"fmt"
	"os"

	"github.com/Mickael78000/voting-dapp/api/controllers"
	"github.com/Mickael78000/voting-dapp/api/transport"
	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/events"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/Mickael78000/voting-dapp/storage"
	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
)

type Server struct {
	config *Config
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
	}
}

// Router wires storage, events and controllers into a ready gin engine.
func (s *Server) Router(ctx context.Context) (*gin.Engine, events.Publisher, error) {
	store, err := s.newRecordStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	publisher := s.newPublisher()

	engine := ballot.NewEngine(store,
		ballot.WithPublisher(publisher),
		ballot.WithStrictCandidateNames(s.config.StrictCandidateNames),
	)

	r := transport.NewRouter(s.config.GinMode)
	auth := transport.SignerAuthMiddleware([]byte(s.config.SignerSecret))

	//Register controllers
	pollController := controllers.NewPollController(engine, auth)
	pollController.RegisterRoutes(r)
	votingController := controllers.NewVotingController(engine, auth)
	votingController.RegisterRoutes(r)

	return r, publisher, nil
}

func (s *Server) Start() {
	r, publisher, err := s.Router(context.Background())
	if err != nil {
		logging.Log.Errorf("failed to build router: %v", err)
		panic("failed to build router: " + err.Error())
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Log.Warnf("EVENTS: failed to close publisher: %v", err)
		}
	}()

	//Do not run lambda helper locally
	if os.Getenv("APP_ENV") == "local" {
		startLocal(r, s.config.Port)
	} else {
		startLambda(r)
	}
}

func (s *Server) newRecordStore(ctx context.Context) (storage.RecordStore, error) {
	switch s.config.Driver {
	case DriverDynamo:
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if s.config.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(s.config.DynamoEndpoint)
			}
		})
		logging.Log.Infof("STORE: using DynamoDB table %s", s.config.TableName)
		return &storage.DynamoRecordStore{Client: client, TableName: s.config.TableName}, nil
	case DriverSQLite:
		logging.Log.Infof("STORE: using sqlite at %s", s.config.SQLiteDSN)
		store, err := storage.OpenSQLiteRecordStore(s.config.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		logging.Log.Warn("STORE: using in-memory records, nothing survives a restart")
		return storage.NewMemoryRecordStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.config.Driver)
}

func (s *Server) newPublisher() events.Publisher {
	if s.config.NatsURL == "" {
		return events.NopPublisher{}
	}

	p, err := events.NewNATSPublisher(events.NATSConfig{
		URL:           s.config.NatsURL,
		Name:          "d21-ballot",
		SubjectPrefix: s.config.SubjectPrefix,
		ReconnectWait: s.config.ReconnectWait,
		MaxReconnects: s.config.MaxReconnects,
		Timeout:       s.config.ConnectTimeout,
	})
	if err != nil {
		logging.Log.Errorf("EVENTS: NATS unavailable, events disabled: %v", err)
		return events.NopPublisher{}
	}
	return p
}

// StartLambda sets up for AWS Lambda
func startLambda(engine *gin.Engine) {
	ginLambda := ginadapter.NewV2(engine)

	handler := func(ctx context.Context, req lambdaevents.APIGatewayV2HTTPRequest) (lambdaevents.APIGatewayV2HTTPResponse, error) {
		logging.Log.Infof("Lambda handler triggered on path: %s", req.RawPath)
		return ginLambda.ProxyWithContext(ctx, req)
	}

	logging.Log.Info("Starting lambda")
	lambda.Start(handler)
}

// StartLocal starts a normal HTTP server on the configured port
func startLocal(engine *gin.Engine, port int) {
	logging.Log.Info(fmt.Sprintf("Starting server on http://localhost:%d", port))

	if err := engine.Run(fmt.Sprintf(":%d", port)); err != nil {
		logging.Log.Fatalf("Failed to run server: %v", err)
	}
}
