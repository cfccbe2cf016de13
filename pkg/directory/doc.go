// Package directory wraps the external identity directory.
//
// CognitoDirectory talks to an Amazon Cognito user pool through the narrow
// CognitoAPI interface; InMemoryDirectory backs tests and local development.
// Tenant attributes live on the identity as custom:company_id, custom:role
// and custom:location_id.
package directory
