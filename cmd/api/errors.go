package main

import "errors"

var errRedisRequired = errors.New("redis cart backend selected but redis is not configured")
