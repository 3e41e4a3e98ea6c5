package script

// Script names. The lstore package uses them to select the native implementation.
const (
	NameAcquireExclusiveSimple = "acquire_exclusive_simple"
	NameReleaseExclusiveSimple = "release_exclusive_simple"
	NameAcquireSharedSimple    = "acquire_shared_simple"
	NameReleaseSharedSimple    = "release_shared_simple"
	NameAcquireExclusiveID     = "acquire_exclusive_id"
	NameReleaseExclusiveID     = "release_exclusive_id"
	NameAcquireSharedID        = "acquire_shared_id"
	NameReleaseSharedID        = "release_shared_id"
	NameAcquireExclusiveSafe   = "acquire_exclusive_safe"
	NameReleaseExclusiveSafe   = "release_exclusive_safe"
	NameAcquireSharedSafe      = "acquire_shared_safe"
	NameReleaseSharedSafe      = "release_shared_safe"
)

// Result codes returned by the scripts.
const (
	ResultOK        int64 = 0 // acquired / released
	ResultBusy      int64 = 1 // incompatible holder (acquire) or ownership mismatch (release)
	ResultCollision int64 = 2 // the token is already a member, retry with a new one
)

// --------------------------------------------------------------------------
// simple mode: the key holds a counter (-1 exclusive, >0 shared holders)
// --------------------------------------------------------------------------

var (
	// ARGV[1]: expire
	AcquireExclusiveSimple = newScript(NameAcquireExclusiveSimple, `
local value = redis.call('get', KEYS[1])
if not value or value == '0' then
    redis.call('set', KEYS[1], -1)
    redis.call('expire', KEYS[1], ARGV[1])
    return 0
end
return 1`)

	// ARGV[1]: init on error
	ReleaseExclusiveSimple = newScript(NameReleaseExclusiveSimple, `
local value = redis.call('get', KEYS[1])
if value and value == '-1' then
    redis.call('del', KEYS[1])
    return 0
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)

	// ARGV[1]: expire
	AcquireSharedSimple = newScript(NameAcquireSharedSimple, `
local value = tonumber(redis.call('get', KEYS[1]))
if not value or value >= 0 then
    redis.call('incr', KEYS[1])
    redis.call('expire', KEYS[1], ARGV[1])
    return 0
end
return 1`)

	// ARGV[1]: init on error
	ReleaseSharedSimple = newScript(NameReleaseSharedSimple, `
local value = tonumber(redis.call('get', KEYS[1]))
if value and value > 0 then
    if value == 1 then
        redis.call('del', KEYS[1])
    else
        redis.call('decr', KEYS[1])
    end
    return 0
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)
)

// --------------------------------------------------------------------------
// id mode: the key holds a set of tokens prefixed with 'e' or 's'
// --------------------------------------------------------------------------

var (
	// ARGV[1]: token, ARGV[2]: expire
	AcquireExclusiveID = newScript(NameAcquireExclusiveID, `
local count = redis.call('scard', KEYS[1])
if count == 0 then
    redis.call('sadd', KEYS[1], ARGV[1])
    redis.call('expire', KEYS[1], ARGV[2])
    return 0
end
return 1`)

	// ARGV[1]: init on error, ARGV[2]: token
	ReleaseExclusiveID = newScript(NameReleaseExclusiveID, `
local count = redis.call('scard', KEYS[1])
if count == 1 and redis.call('sismember', KEYS[1], ARGV[2]) == 1 then
    redis.call('del', KEYS[1])
    return 0
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)

	// ARGV[1]: token, ARGV[2]: expire
	AcquireSharedID = newScript(NameAcquireSharedID, `
local count, shared = redis.call('scard', KEYS[1]), true
if count == 1 then
    local member = redis.call('smembers', KEYS[1])[1]
    shared = string.sub(member, 1, 1) == 's'
end
if shared then
    if count ~= 0 and redis.call('sismember', KEYS[1], ARGV[1]) == 1 then
        return 2
    end
    redis.call('sadd', KEYS[1], ARGV[1])
    redis.call('expire', KEYS[1], ARGV[2])
    return 0
end
return 1`)

	// ARGV[1]: init on error, ARGV[2]: token
	ReleaseSharedID = newScript(NameReleaseSharedID, `
local count = redis.call('scard', KEYS[1])
if count == 1 and redis.call('sismember', KEYS[1], ARGV[2]) == 1 then
    redis.call('del', KEYS[1])
    return 0
elseif count > 0 then
    if redis.call('srem', KEYS[1], ARGV[2]) == 1 then
        return 0
    end
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)
)

// --------------------------------------------------------------------------
// safe mode: the key holds a sorted set of tokens.
// score 0 marks the exclusive holder, any other score is the absolute expiry
// (server time in seconds) of a shared holder.
// --------------------------------------------------------------------------

var (
	// ARGV[1]: token, ARGV[2]: current server time, ARGV[3]: expire
	AcquireExclusiveSafe = newScript(NameAcquireExclusiveSafe, `
local top, free = redis.call('zrevrange', KEYS[1], 0, 0, 'withscores'), false
if #top == 0 then
    free = true
elseif top[2] ~= '0' then
    local score, now = tonumber(top[2]), tonumber(ARGV[2])
    if score and now and score < now then
        redis.call('del', KEYS[1])
        free = true
    end
end
if free then
    redis.call('zadd', KEYS[1], 0, ARGV[1])
    redis.call('expire', KEYS[1], ARGV[3])
    return 0
end
return 1`)

	// ARGV[1]: init on error, ARGV[2]: token
	ReleaseExclusiveSafe = newScript(NameReleaseExclusiveSafe, `
if redis.call('zcard', KEYS[1]) == 1 then
    if redis.call('zscore', KEYS[1], ARGV[2]) == '0' then
        redis.call('del', KEYS[1])
        return 0
    end
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)

	// ARGV[1]: token, ARGV[2]: current server time, ARGV[3]: expire
	AcquireSharedSafe = newScript(NameAcquireSharedSafe, `
local bottom = redis.call('zrange', KEYS[1], 0, 0, 'withscores')
if #bottom == 0 or bottom[2] ~= '0' then
    if redis.call('zscore', KEYS[1], ARGV[1]) then
        return 2
    end
    local expire = tonumber(ARGV[3])
    redis.call('zadd', KEYS[1], tonumber(ARGV[2]) + expire, ARGV[1])
    redis.call('expire', KEYS[1], expire)
    return 0
end
return 1`)

	// ARGV[1]: init on error, ARGV[2]: token
	ReleaseSharedSafe = newScript(NameReleaseSharedSafe, `
local bottom = redis.call('zrange', KEYS[1], 0, 1, 'withscores')
if #bottom ~= 0 and bottom[2] ~= '0' and redis.call('zscore', KEYS[1], ARGV[2]) then
    if #bottom == 2 then
        redis.call('del', KEYS[1])
    else
        redis.call('zrem', KEYS[1], ARGV[2])
    end
    return 0
end
if ARGV[1] == '1' then redis.call('del', KEYS[1]) end
return 1`)
)
