package server

import (
	"strconv"
	"strings"

	"github.com/eternalApril/moonstone/internal/resp"
)

func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkString(ctx.arg(0))
	default:
		return resp.MakeErrorWrongNumberOfArguments("PING")
	}
}

func get(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("GET")
	}

	value, ok, err := ctx.store.Get(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(value)
}

// set handles SET key value [EX seconds | PX milliseconds].
// A TTL option is a composition: the scalar write and the expiry registration
// are two independent operations, not one atomic step
func set(ctx *context) resp.Value {
	if len(ctx.args) < 2 {
		return resp.MakeErrorWrongNumberOfArguments("SET")
	}

	key, value := ctx.arg(0), ctx.arg(1)

	var ttlMillis int64
	var hasTTL bool

	for i := 2; i < len(ctx.args); i++ {
		switch strings.ToUpper(ctx.arg(i)) {
		case "EX", "PX":
			if hasTTL {
				return resp.MakeError("TTL already specified")
			}
			if i+1 >= len(ctx.args) {
				return resp.MakeError("syntax error")
			}

			n, err := strconv.ParseInt(ctx.arg(i+1), 10, 64)
			if err != nil {
				return resp.MakeError("value TTL is not integer")
			}

			ttlMillis = n
			if strings.ToUpper(ctx.arg(i)) == "EX" {
				ttlMillis = n * 1000
			}
			hasTTL = true
			i++
		default:
			return resp.MakeError("syntax error with command SET")
		}
	}

	if err := ctx.store.Set(key, value); err != nil {
		return resp.MakeError(err.Error())
	}

	if hasTTL {
		if err := ctx.store.ExpireMillis(key, ttlMillis); err != nil {
			return resp.MakeError(err.Error())
		}
	}

	return resp.MakeSimpleString("OK")
}

func del(ctx *context) resp.Value {
	if len(ctx.args) < 1 {
		return resp.MakeErrorWrongNumberOfArguments("DEL")
	}

	var removed int64
	for i := range ctx.args {
		key := ctx.arg(i)

		existed, err := ctx.store.Exists(key)
		if err != nil {
			return resp.MakeError(err.Error())
		}
		if err := ctx.store.Del(key); err != nil {
			return resp.MakeError(err.Error())
		}
		if existed {
			removed++
		}
	}
	return resp.MakeInteger(removed)
}

func exists(ctx *context) resp.Value {
	if len(ctx.args) < 1 {
		return resp.MakeErrorWrongNumberOfArguments("EXISTS")
	}

	var count int64
	for i := range ctx.args {
		ok, err := ctx.store.Exists(ctx.arg(i))
		if err != nil {
			return resp.MakeError(err.Error())
		}
		if ok {
			count++
		}
	}
	return resp.MakeInteger(count)
}

func hset(ctx *context) resp.Value {
	if len(ctx.args) != 3 {
		return resp.MakeErrorWrongNumberOfArguments("HSET")
	}

	created, err := ctx.store.HSet(ctx.arg(0), ctx.arg(1), ctx.arg(2))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(created)
}

func hget(ctx *context) resp.Value {
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("HGET")
	}

	value, ok, err := ctx.store.HGet(ctx.arg(0), ctx.arg(1))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(value)
}

func lpush(ctx *context) resp.Value {
	return push(ctx, "LPUSH")
}

func rpush(ctx *context) resp.Value {
	return push(ctx, "RPUSH")
}

func push(ctx *context, name string) resp.Value {
	if len(ctx.args) < 2 {
		return resp.MakeErrorWrongNumberOfArguments(name)
	}

	values := make([]string, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		values[i-1] = ctx.arg(i)
	}

	var length int64
	var err error
	if name == "LPUSH" {
		length, err = ctx.store.LPush(ctx.arg(0), values...)
	} else {
		length, err = ctx.store.RPush(ctx.arg(0), values...)
	}
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(length)
}

func lpop(ctx *context) resp.Value {
	return pop(ctx, "LPOP")
}

func rpop(ctx *context) resp.Value {
	return pop(ctx, "RPOP")
}

func pop(ctx *context, name string) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments(name)
	}

	var value string
	var ok bool
	var err error
	if name == "LPOP" {
		value, ok, err = ctx.store.LPop(ctx.arg(0))
	} else {
		value, ok, err = ctx.store.RPop(ctx.arg(0))
	}
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(value)
}

func lrange(ctx *context) resp.Value {
	if len(ctx.args) != 3 {
		return resp.MakeErrorWrongNumberOfArguments("LRANGE")
	}

	start, err := strconv.ParseInt(ctx.arg(1), 10, 64)
	if err != nil {
		return resp.MakeError("value is not an integer or out of range")
	}
	stop, err := strconv.ParseInt(ctx.arg(2), 10, 64)
	if err != nil {
		return resp.MakeError("value is not an integer or out of range")
	}

	items, err := ctx.store.LRange(ctx.arg(0), start, stop)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeStringArray(items)
}

func expire(ctx *context) resp.Value {
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("EXPIRE")
	}

	seconds, err := strconv.ParseInt(ctx.arg(1), 10, 64)
	if err != nil {
		return resp.MakeError("value is not an integer or out of range")
	}

	if err := ctx.store.Expire(ctx.arg(0), seconds); err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(1)
}

func ttl(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("TTL")
	}

	remaining, err := ctx.store.TTL(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(remaining)
}

func pttl(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("PTTL")
	}

	remaining, err := ctx.store.TTLMillis(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(remaining)
}

func persist(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("PERSIST")
	}

	removed, err := ctx.store.Persist(ctx.arg(0))
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(removed)
}

// cmd handles COMMAND and COMMAND DOCS
func cmd(ctx *context) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	if strings.ToUpper(ctx.arg(0)) == "DOCS" {
		return getCommandsDocs(ctx.args[1:])
	}

	return getAllCommands()
}
