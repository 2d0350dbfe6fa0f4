package mock

//go:generate go install github.com/golang/mock/mockgen@v1.6.0
//go:generate mockgen -package mock -destination ./client.mock.go github.com/zitadel/ciba/pkg/op Client,ClientRegistry,ClientRegistrar
//go:generate mockgen -package mock -destination ./user.mock.go github.com/zitadel/ciba/pkg/op UserResolver
//go:generate mockgen -package mock -destination ./token.mock.go github.com/zitadel/ciba/pkg/op TokenCreator
//go:generate mockgen -package mock -destination ./notifier.mock.go github.com/zitadel/ciba/pkg/op Notifier
