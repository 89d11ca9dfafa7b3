// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// IDトークンの発行と検証、構造化リクエストログ、パニックリカバリ、
// CORS設定など、users・orders・gatewayの各サービスで共通して使用する部品を含む。
package middleware
