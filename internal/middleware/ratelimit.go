package middleware

import (
	"context"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// slidingWindow counts requests per key in a rolling window using a Redis
// sorted set. Atomicity matters under concurrent requests, hence the script.
var slidingWindow = redislib.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now .. ':' .. count)
		redis.call('PEXPIRE', key, window_ms)
		return {1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = oldest[2] + window_ms - now
	end
	return {0, retry_after}
`)

// RateLimit returns a fasthttp middleware enforcing a per-client-IP sliding
// window limit. Redis failures fail open: a broken limiter never takes the
// API down with it.
func RateLimit(client *redislib.Client, limit int, window time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if client == nil || limit <= 0 {
				next(ctx)
				return
			}

			key := "ratelimit:" + clientIP(ctx)
			now := time.Now()

			redisCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			result, err := slidingWindow.Run(redisCtx, client,
				[]string{key},
				now.UnixMilli(),
				now.Add(-window).UnixMilli(),
				limit,
				window.Milliseconds(),
			).Int64Slice()
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next(ctx)
				return
			}

			if len(result) == 2 && result[0] == 0 {
				retryAfter := (result[1] + 999) / 1000
				if retryAfter < 1 {
					retryAfter = 1
				}
				ctx.Response.Header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
				return
			}

			next(ctx)
		}
	}
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		return forwarded
	}
	if addr := ctx.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
