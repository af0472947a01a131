// Package objectstore — клиент Swift-совместимого объектного хранилища,
// в котором хранятся файлы планов развёртывания.
//
// Используются только операции, нужные CLI: листинги аккаунта и
// контейнера, загрузка и удаление объектов, загрузка tar.gz с
// распаковкой на стороне хранилища (extract-archive) и скачивание
// экспортированного плана по временной ссылке.
package objectstore
