package lootdb

const Version = "0.1.0"
