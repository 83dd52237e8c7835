// Package mq — обмен событиями grid через RabbitMQ.
//
// События job.submitted будят scheduler сразу после submit, не дожидаясь
// следующего polling-тика; события job.completed будят ожидающих
// результата. MQ — ускоритель, а не источник истины: grid полностью
// работоспособен в polling-only режиме без RabbitMQ, таблица jobs
// остаётся единственным shared state.
package mq
