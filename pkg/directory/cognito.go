package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoAPI is the part of the Cognito user pool client used by CognitoDirectory.
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
	AdminDeleteUser(ctx context.Context, params *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
}

// CognitoDirectory implements Directory on an Amazon Cognito user pool.
type CognitoDirectory struct {
	client     CognitoAPI
	userPoolID string
}

func NewCognitoDirectory(client CognitoAPI, userPoolID string) *CognitoDirectory {
	return &CognitoDirectory{client: client, userPoolID: userPoolID}
}

func (d *CognitoDirectory) CreateIdentity(ctx context.Context, in CreateIdentityInput) (Identity, error) {
	input := &cip.AdminCreateUserInput{
		UserPoolId:             aws.String(d.userPoolID),
		Username:               aws.String(in.Username),
		UserAttributes:         toAttributeTypes(in.Attributes),
		ClientMetadata:         in.ClientMetadata,
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
	}
	if in.TemporaryPassword != "" {
		input.TemporaryPassword = aws.String(in.TemporaryPassword)
	}

	out, err := d.client.AdminCreateUser(ctx, input)
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return Identity{}, fmt.Errorf("%w: %s", ErrIdentityExists, in.Username)
		}
		return Identity{}, fmt.Errorf("failed to create cognito user %s: %w", in.Username, err)
	}
	if out.User == nil {
		return Identity{}, fmt.Errorf("cognito returned no user for %s", in.Username)
	}

	slog.Info("Created cognito user", "username", aws.ToString(out.User.Username))
	return Identity{
		Username:   aws.ToString(out.User.Username),
		Attributes: fromAttributeTypes(out.User.Attributes),
	}, nil
}

func (d *CognitoDirectory) GetIdentity(ctx context.Context, username string) (Identity, error) {
	out, err := d.client.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return Identity{}, mapCognitoError(err, username)
	}
	return Identity{
		Username:   aws.ToString(out.Username),
		Attributes: fromAttributeTypes(out.UserAttributes),
	}, nil
}

func (d *CognitoDirectory) ResolveToken(ctx context.Context, accessToken string) (Identity, error) {
	out, err := d.client.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		var notAuthorized *types.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			return Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, notAuthorized.ErrorMessage())
		}
		return Identity{}, mapCognitoError(err, "")
	}
	return Identity{
		Username:   aws.ToString(out.Username),
		Attributes: fromAttributeTypes(out.UserAttributes),
	}, nil
}

func (d *CognitoDirectory) UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	_, err := d.client.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(d.userPoolID),
		Username:       aws.String(username),
		UserAttributes: toAttributeTypes(attrs),
	})
	if err != nil {
		return mapCognitoError(err, username)
	}
	return nil
}

func (d *CognitoDirectory) DeleteIdentity(ctx context.Context, username string) error {
	_, err := d.client.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return mapCognitoError(err, username)
	}
	slog.Info("Deleted cognito user", "username", username)
	return nil
}

func mapCognitoError(err error, username string) error {
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
	}
	if username == "" {
		return fmt.Errorf("cognito call failed: %w", err)
	}
	return fmt.Errorf("cognito call for %s failed: %w", username, err)
}

// toAttributeTypes sorts by name so requests are deterministic.
func toAttributeTypes(attrs map[string]string) []types.AttributeType {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		out = append(out, types.AttributeType{Name: aws.String(name), Value: aws.String(attrs[name])})
	}
	return out
}

func fromAttributeTypes(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}
