// Package schedule — вычисление сроков периодических расписаний.
//
// Расписание задаётся либо cron-выражением (5 полей), либо интервалом
// в секундах; timezone учитывается при вычислении, сроки хранятся в UTC.
// Сама отправка jobs по расписанию живёт в grid scheduler.
package schedule
